package classification

// DefaultRules returns rules for the built-in seed categories.
func DefaultRules() []Rule {
	return []Rule{
		// Income - highest priority
		{
			Name:       "Payroll",
			Category:   "income",
			Regex:      `\b(DIRECTDEP|DIRECT\s*DEP|DIR\s*DEP|PAYROLL|SALARY|WAGES)\b`,
			Priority:   100,
			CreditOnly: true,
		},
		{
			Name:       "Interest",
			Category:   "income",
			Regex:      `\b(INTEREST|INT\s*EARNED|DIVIDEND)\b`,
			Priority:   95,
			CreditOnly: true,
		},
		{
			Name:       "Bonus",
			Category:   "income",
			Regex:      `\b(BONUS|COMMISSION|INVOICE|CLIENT\s*PAYMENT)\b`,
			Priority:   90,
			CreditOnly: true,
		},

		// Expenses
		{
			Name:     "Ride",
			Category: "taxi",
			Regex:    `\b(UBER|LYFT|SNAPP|TAPSI|TAXI|CAB)\b`,
			Priority: 60,
		},
		{
			Name:     "Streaming and software",
			Category: "subscriptions",
			Regex:    `\b(NETFLIX|SPOTIFY|HULU|PATREON|YOUTUBE\s*PREMIUM|APPLE\.COM/BILL|SUBSCRIPTION)\b`,
			Priority: 60,
		},
		{
			Name:     "Travel",
			Category: "travel",
			Regex:    `\b(AIRLINES?|AIRBNB|HOTEL|EXPEDIA|BOOKING\.COM|MARRIOTT|HILTON)\b`,
			Priority: 55,
		},
		{
			Name:     "Learning",
			Category: "education",
			Regex:    `\b(UDEMY|COURSERA|TUITION|UNIVERSITY|BOOKSTORE)\b`,
			Priority: 55,
		},
		{
			Name:     "Donation",
			Category: "charity",
			Regex:    `\b(DONATION|CHARITY|RED\s*CROSS|UNICEF|GOFUNDME)\b`,
			Priority: 55,
		},
		{
			Name:     "Business tools",
			Category: "business-expense",
			Regex:    `\b(AWS|AMAZON\s*WEB\s*SERVICES|GOOGLE\s*CLOUD|GITHUB|DIGITALOCEAN|OFFICE\s*DEPOT)\b`,
			Priority: 50,
		},
		{
			Name:     "Gift shops",
			Category: "gift",
			Regex:    `\b(GIFT|FLORIST|FLOWERS)\b`,
			Priority: 45,
		},
		{
			Name:     "Retail",
			Category: "personal-shopping",
			Regex:    `\b(AMAZON|AMZN|TARGET|WALMART|ZARA|H&M|IKEA|BEST\s*BUY)\b`,
			Priority: 40,
		},
	}
}
