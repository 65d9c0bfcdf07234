package mock

type contractKeyword struct {
	keyword      string
	contractType string
}

// contractKeywords are checked in order; the first match wins.
var contractKeywords = []contractKeyword{
	{"non-disclosure", "NDA"},
	{"confidentiality agreement", "NDA"},
	{"master services agreement", "MSA"},
	{"software as a service", "SaaS Agreement"},
	{"subscription", "SaaS Agreement"},
	{"employment agreement", "Employment Agreement"},
	{"employee", "Employment Agreement"},
	{"consulting", "Consulting Agreement"},
	{"license agreement", "License Agreement"},
	{"licensor", "License Agreement"},
	{"services agreement", "Services Agreement"},
}

type clauseKeyword struct {
	keyword    string
	clauseType string
}

var clauseKeywords = []clauseKeyword{
	{"indemnif", "Indemnification"},
	{"limitation of liability", "Limitation of Liability"},
	{"liable", "Limitation of Liability"},
	{"terminat", "Termination"},
	{"confidential", "Confidentiality"},
	{"intellectual property", "IP Ownership"},
	{"personal data", "Data Privacy"},
	{"privacy", "Data Privacy"},
	{"non-compete", "Non-Compete"},
	{"compete", "Non-Compete"},
	{"invoice", "Payment Terms"},
	{"fees", "Payment Terms"},
	{"payment", "Payment Terms"},
	{"warrant", "Representations & Warranties"},
	{"governing law", "Governing Law"},
	{"governed by", "Governing Law"},
	{"assign", "Assignment"},
	{"force majeure", "Force Majeure"},
	{"insurance", "Insurance"},
	{"renew", "Auto-Renewal"},
	{"uptime", "SLA"},
	{"service level", "SLA"},
}

var highRiskKeywords = []string{
	"unlimited",
	"sole discretion",
	"perpetual",
	"irrevocable",
	"automatically renew",
	"without notice",
	"worldwide",
}

var mediumRiskKeywords = []string{
	"indemnif",
	"exclusive",
	"terminate for convenience",
	"liquidated damages",
	"shall not",
}
