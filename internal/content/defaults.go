package content

// DefaultSettings is what GET /settings answers before an administrator
// has ever saved anything, and what initialization seeds when the
// settings key is absent.
func DefaultSettings() SiteSettings {
	return SiteSettings{
		SiteName:         "Enrico Portfolio",
		HeroTitle:        "Crafting meaningful digital experiences",
		HeroSubtitle:     "I'm a product designer focused on creating user-centered solutions that solve real problems and delight users. With a passion for beautiful interfaces and seamless interactions, I help companies transform their ideas into engaging digital products.",
		AboutTitle:       "Let's work together",
		AboutDescription: "I'm passionate about solving complex problems through thoughtful design. With over 5 years of experience in product design, I've helped companies of all sizes create digital experiences that users love. My approach combines user research, strategic thinking, and visual design to deliver solutions that are both beautiful and functional. I believe great design should be invisible - it should just work.",
		AboutExpertise: []string{
			"Product Design",
			"UX Research",
			"Design Systems",
			"Prototyping",
			"User Testing",
			"Interface Design",
		},
		ContactEmail:   "hello@enrico.design",
		ContactPhone:   "+1 (555) 123-4567",
		SocialLinkedIn: "https://linkedin.com/in/yourprofile",
		SocialTwitter:  "https://twitter.com/yourhandle",
		SocialDribbble: "https://dribbble.com/yourprofile",
		SocialBehance:  "https://behance.net/yourprofile",
	}
}

// DefaultSections is the homepage layout served until an administrator
// saves a custom arrangement. The server copy is the single source of
// truth; clients never persist their own fork.
func DefaultSections() []HomepageSection {
	return []HomepageSection{
		{ID: "hero", Name: "Hero Section", IsVisible: true, Order: 1},
		{
			ID: "stats", Name: "Stats Section", IsVisible: true, Order: 2,
			Data: map[string]any{
				"stats": []map[string]any{
					{"icon": "Users", "value": "50+", "label": "Happy Clients"},
					{"icon": "Zap", "value": "100+", "label": "Projects Completed"},
					{"icon": "Sparkles", "value": "5+", "label": "Years Experience"},
				},
			},
		},
		{ID: "values", Name: "About Me / Values", IsVisible: true, Order: 3},
		{ID: "philosophy", Name: "Philosophy Section", IsVisible: true, Order: 4},
		{ID: "experience", Name: "Experience Timeline", IsVisible: true, Order: 5},
		{ID: "skills", Name: "Skills & Expertise", IsVisible: true, Order: 6},
		{ID: "projects", Name: "Featured Projects", IsVisible: true, Order: 7},
		{ID: "cta", Name: "CTA Section", IsVisible: true, Order: 8},
	}
}
