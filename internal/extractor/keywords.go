package extractor

// DefaultNoiseKeywords marks receipt boilerplate that must never be
// extracted as an item: address markers, tax and service labels, totals,
// payment-method labels, contact info, and vendor slogans. The list is
// data, not logic; deployments extend or replace it through configuration.
var DefaultNoiseKeywords = []string{
	"Jalan", "Jl.", "Telp", "Bill", "Guest", "Dine In",
	"Sub Total", "Tax", "Pjk", "Service", "Pembulatan",
	"Total", "Non Tunai", "Edc", "Kembali", "Arigato",
	"Bento", "Whatsapp", "Email", "Call", "Summarecon",
}
