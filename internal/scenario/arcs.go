package scenario

// BuiltIn returns predefined encounter arcs.
func BuiltIn() map[string]Encounter {
	return map[string]Encounter{
		"skirmish": {
			Name:        "Skirmish",
			Description: "Light, steady hostile pressure suited to watching rotation fairness.",
			Phases: []Phase{
				{
					Name:     "probe",
					CastRate: 1,
					Triggers: []Trigger{{Event: "time_elapsed", Value: 60, Next: "push"}},
				},
				{
					Name:     "push",
					CastRate: 1.5,
					Triggers: []Trigger{{Event: "casts_interrupted", Value: 20, Next: "retreat"}},
				},
				{
					Name:     "retreat",
					CastRate: 0.5,
				},
			},
		},
		"onslaught": {
			Name:        "Onslaught",
			Description: "Escalating cast pressure that exhausts cooldowns and forces fallbacks.",
			Phases: []Phase{
				{
					Name:     "setup",
					CastRate: 1,
					Triggers: []Trigger{{Event: "time_elapsed", Value: 30, Next: "escalation"}},
				},
				{
					Name:     "escalation",
					CastRate: 2,
					Triggers: []Trigger{{Event: "time_elapsed", Value: 90, Next: "climax"}},
				},
				{
					Name:     "climax",
					CastRate: 4,
					Triggers: []Trigger{{Event: "casts_interrupted", Value: 50, Next: "resolution"}},
				},
				{
					Name:     "resolution",
					CastRate: 0.75,
				},
			},
		},
	}
}
