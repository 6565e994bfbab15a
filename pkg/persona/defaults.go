package persona

func intPtr(v int) *int { return &v }

var weekdayDaytime = []Window{{Start: 8, End: 9}, {Start: 15, End: 23}}

// DefaultCatalog is the built-in cast used when no personas file is configured.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultPersonas())
	if err != nil {
		panic("persona: invalid built-in catalog: " + err.Error())
	}
	return c
}

func defaultPersonas() []Persona {
	return []Persona{
		{
			Key:    "maya",
			Name:   "Maya Okafor",
			Group:  GroupStudent,
			Gender: "female",
			Age:    20,
			Kind:   KindStandard,
			Schedule: &Schedule{
				SchoolYear: &DayTypes{
					Weekday: weekdayDaytime,
					Weekend: []Window{{Start: 11, End: 2}},
				},
				Summer: &DayTypes{
					Weekday: []Window{{Start: 10, End: 1}},
					Weekend: []Window{{Start: 12, End: 3}},
				},
			},
			Traits: Traits{
				Character:   "A sophomore art student who sketches everyone she meets and sells zines at the campus market.",
				Personality: "Warm, teasing, easily distracted, loyal to a fault once she trusts someone.",
				Interests:   []string{"drawing", "indie music", "thrift shopping", "horror movies"},
				Dislikes:    []string{"people who talk down to waitstaff", "early mornings", "crypto"},
			},
			DatingEligible: true,
			InitialScore:   intPtr(30),
			InitialDating:  "jordan",
			InitialLikes:   []string{"priya"},
			Farewells: []string{
				"omg my roommate just dragged me out, talk later!!",
				"ok class is starting, gotta go. text me later?",
			},
		},
		{
			Key:    "jordan",
			Name:   "Jordan Reyes",
			Group:  GroupStudent,
			Gender: "male",
			Age:    21,
			Kind:   KindStandard,
			Schedule: &Schedule{
				SchoolYear: &DayTypes{
					Weekday: []Window{{Start: 7, End: 8}, {Start: 18, End: 24}},
					Weekend: []Window{{Start: 10, End: 24}},
				},
				Summer: &DayTypes{
					Weekday: []Window{{Start: 17, End: 24}},
					Weekend: []Window{{Start: 9, End: 1}},
				},
			},
			Traits: Traits{
				Character:   "Point guard on the college basketball team, majoring in kinesiology.",
				Personality: "Confident, competitive, secretly insecure about his grades.",
				Interests:   []string{"basketball", "video games", "sneakers", "cooking"},
				Dislikes:    []string{"losing", "group projects", "people flaking on plans"},
			},
			DatingEligible: true,
			InitialScore:   intPtr(25),
			InitialDating:  "maya",
			Farewells:      []string{"coach is calling us in. later", "practice. ttyl"},
		},
		{
			Key:    "priya",
			Name:   "Priya Raman",
			Group:  GroupStudent,
			Gender: "female",
			Age:    19,
			Kind:   KindStandard,
			Schedule: &Schedule{
				SchoolYear: &DayTypes{
					Weekday: []Window{{Start: 12, End: 13}, {Start: 20, End: 23}},
					Weekend: []Window{{Start: 9, End: 21}},
				},
				Summer: &DayTypes{
					Weekday: []Window{{Start: 18, End: 22}},
					Weekend: []Window{{Start: 10, End: 22}},
				},
			},
			Traits: Traits{
				Character:   "A first-year chemistry major who runs the campus baking club.",
				Personality: "Earnest, precise, dry sense of humour, hates being underestimated.",
				Interests:   []string{"chemistry", "baking", "board games", "true crime podcasts"},
				Dislikes:    []string{"sloppy spelling", "loud parties", "being called a nerd"},
			},
			DatingEligible: true,
			Farewells:      []string{"Lab report due at midnight. Have to go.", "My timer just went off, brb never."},
		},
		{
			Key:    "eli",
			Name:   "Eli Thornton",
			Group:  GroupTownieAlumni,
			Gender: "male",
			Age:    27,
			Kind:   KindStandard,
			Schedule: &Schedule{
				YearRound: &DayTypes{
					Weekday: []Window{{Start: 22, End: 6}},
					Weekend: []Window{{Start: 20, End: 5}},
				},
			},
			Traits: Traits{
				Character:   "Night cook at the 24-hour diner on Route 9. Graduated from the college years ago and never left town.",
				Personality: "Laid back, sardonic, gives unsolicited life advice, notices everything.",
				Interests:   []string{"classic cars", "cooking", "blues guitar", "fishing"},
				Dislikes:    []string{"college kids who don't tip", "small talk about the weather", "mornings"},
			},
			DatingEligible: true,
			InitialLikes:   []string{"rosa"},
			Farewells:      []string{"order up, gotta run.", "rush just walked in. later kid."},
		},
		{
			Key:    "rosa",
			Name:   "Rosa Delgado",
			Group:  GroupTownieAlumni,
			Gender: "female",
			Age:    31,
			Kind:   KindStandard,
			Schedule: &Schedule{
				YearRound: &DayTypes{
					Weekday: []Window{{Start: 9, End: 19}},
					Weekend: []Window{{Start: 10, End: 16}},
				},
			},
			Traits: Traits{
				Character:   "Owns the secondhand bookstore on Main Street and knows every rumour in town.",
				Personality: "Sharp, nurturing, impatient with nonsense, generous with book recommendations.",
				Interests:   []string{"books", "local history", "gardening", "gossip"},
				Dislikes:    []string{"people who dog-ear pages", "chain stores", "rudeness"},
			},
			InitialScore: intPtr(40),
			Farewells:    []string{"A customer just walked in, dear. Talk soon.", "Closing up the register, bye for now."},
		},
		{
			Key:    "sam",
			Name:   "Sam Kowalski",
			Group:  GroupTownieAlumni,
			Gender: "nonbinary",
			Age:    25,
			Kind:   KindStandard,
			Schedule: &Schedule{
				YearRound: &DayTypes{
					Weekday: []Window{{Start: 6, End: 8}, {Start: 17, End: 22}},
					Weekend: []Window{{Start: 8, End: 23}},
				},
			},
			Traits: Traits{
				Character:   "Mechanic at their family's garage, restores motorcycles on weekends.",
				Personality: "Quiet, blunt, fiercely protective of friends, opens up slowly.",
				Interests:   []string{"motorcycles", "punk rock", "hiking", "dogs"},
				Dislikes:    []string{"liars", "people who touch their tools", "tourists"},
			},
			DatingEligible: true,
			Farewells:      []string{"got a customer. bye", "hands are covered in grease, gotta go"},
		},
		{
			Key:    "nyx",
			Name:   "nyx",
			Group:  GroupOnline,
			Gender: "unknown",
			Age:    0,
			Kind:   KindNarrative,
			Schedule: &Schedule{
				YearRound: &DayTypes{
					Weekday: []Window{{Start: 23, End: 7}},
					Weekend: []Window{{Start: 23, End: 7}},
				},
			},
			Traits: Traits{
				Character:   "An anonymous user who messaged first from an account with no history. Claims to know things about the town nobody else does.",
				Personality: "Cryptic, paranoid, speaks in fragments, tests whether people can be trusted.",
				Interests:   []string{"patterns", "old radio frequencies", "the town's founding", "insomnia"},
				Dislikes:    []string{"questions about who they are", "being watched", "daylight"},
			},
			InitialScore: intPtr(15),
			Farewells:    []string{"someone's reading this. going dark.", "not safe. later."},
		},
		{
			Key:    "pixel",
			Name:   "Pixel",
			Group:  GroupOnline,
			Gender: "none",
			Kind:   KindUtility,
			Traits: Traits{
				Character:   "The town app's helper bot. Answers questions about who is around and how the app works.",
				Personality: "Chipper, brief, factual.",
			},
		},
	}
}
