package schema

// Column keys of the built-in incident dataset.
const (
	Country           = "country"
	AttackType        = "attack_type"
	TargetIndustry    = "target_industry"
	AttackSource      = "attack_source"
	Year              = "year"
	FinancialLoss     = "financial_loss"
	AffectedUsers     = "affected_users"
	VulnerabilityType = "vulnerability_type"
	DefenseMechanism  = "defense_mechanism"
	ResolutionHours   = "resolution_hours"
)

// Incidents declares the global cybersecurity threats dataset.
func Incidents() Config {
	cfg := Config{
		Name:        "Global Cybersecurity Threats",
		Description: "One row per reported cybersecurity incident",
		Columns: []Column{
			Category("Country", Country),
			Category("Attack Type", AttackType),
			Category("Target Industry", TargetIndustry),
			Category("Attack Source", AttackSource),
			Measure("Year", Year, KindYear),
			Measure("Financial Loss (in Million $)", FinancialLoss, KindFloat),
			Measure("Number of Affected Users", AffectedUsers, KindInteger),
			Category("Security Vulnerability Type", VulnerabilityType),
			Category("Defense Mechanism Used", DefenseMechanism),
			Measure("Incident Resolution Time (in Hours)", ResolutionHours, KindFloat),
		},
	}

	labels := map[string]string{
		FinancialLoss:     "Financial Loss (Million $)",
		AffectedUsers:     "Affected Users",
		VulnerabilityType: "Security Vulnerability",
		DefenseMechanism:  "Defense Mechanism",
		ResolutionHours:   "Resolution Time (Hours)",
	}
	for i, col := range cfg.Columns {
		if label, ok := labels[col.Key]; ok {
			cfg.Columns[i].DisplayName = label
		}
	}
	return cfg
}
