package categorize

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string
	Keywords []string
}

// Other is returned when no rule matches.
const Other = "Other"

// rules is checked top to bottom and the first hit wins. Wallet categories
// come first, then the generic ones; keywords shared between the two sets
// ("bonus") resolve to the earlier category.
//
// Descriptions are padded with a space on both ends before matching, so a
// keyword with a leading or trailing space only matches on a word edge.
var rules = []Rule{
	// Wallet taxonomy.
	{Category: "Money Transfer", Keywords: []string{
		"transfer", "trf", "sent to", "received from", "p2p", "send money", " nip ",
	}},
	{Category: "Airtime & Data", Keywords: []string{
		"airtime", "data bundle", "data purchase", "data plan", "recharge", " mtn", " glo ", "airtel", "9mobile",
	}},
	{Category: "Bills & Utilities", Keywords: []string{
		"electricity", "prepaid meter", "ikedc", "ekedc", "aedc", "phcn", "dstv", "gotv", "startimes",
		"cable tv", "water bill", "bill payment", "utility", "internet subscription",
	}},
	{Category: "POS & Merchant", Keywords: []string{
		"pos purchase", "pos payment", " pos ", "merchant", "qr payment", "qr code", "web payment", "card payment",
	}},
	{Category: "Cash Withdrawal", Keywords: []string{
		"cash withdrawal", "atm withdrawal", " atm ", "withdrawal",
	}},
	{Category: "Rewards", Keywords: []string{
		"cashback", "cash back", "bonus", "reward", "referral", "promo",
	}},
	{Category: "Savings", Keywords: []string{
		"owealth", "savings", "safebox", "target saving", "fixed deposit", "spend and save",
	}},
	{Category: "Fees & Charges", Keywords: []string{
		" fee", "fees", " charge", "stamp duty", "levy", "commission", "sms alert", " vat ",
	}},
	{Category: "Loans", Keywords: []string{
		" loan", "repayment", "credit facility", "overdraft",
	}},

	// Generic taxonomy.
	{Category: "Salary", Keywords: []string{
		"salary", "payroll", "wages", "stipend",
	}},
	{Category: "Income", Keywords: []string{
		"bonus", "dividend", "interest earned", "interest credit", "interest paid", "income", "allowance",
	}},
	{Category: "Food & Dining", Keywords: []string{
		"restaurant", "food", "eatery", "kfc", "chicken republic", "domino", "pizza", "cafe", "coffee",
		"bukka", "kitchen", "sweet sensation", "chowdeck", "glovo",
	}},
	{Category: "Shopping", Keywords: []string{
		"jumia", "konga", "shoprite", " spar ", "supermarket", " mall", " store", "amazon", "aliexpress",
		"shopping", "boutique", "market",
	}},
	{Category: "Transportation", Keywords: []string{
		"uber", "bolt", "taxi", "fuel", "petrol", "filling station", "transport", " bus ", " brt",
		"parking", "toll", "flight", "airline",
	}},
	{Category: "Entertainment", Keywords: []string{
		"netflix", "spotify", "showmax", "cinema", "movie", "apple music", "youtube", "playstation",
		"game", "bet9ja", "sportybet", "betking", "betting",
	}},
	{Category: "Health", Keywords: []string{
		"hospital", "pharmacy", "clinic", "medical", "health", " hmo", "drug", "lab test",
	}},
	{Category: "Education", Keywords: []string{
		"school", "tuition", "university", "college", "course", " exam", "waec", "jamb", "books", "udemy",
	}},
	{Category: "Rent & Housing", Keywords: []string{
		" rent", "landlord", "housing", "estate", "apartment",
	}},
	{Category: "Insurance", Keywords: []string{
		"insurance", "premium", "axa mansard", "leadway", "aiico",
	}},
	{Category: "Investment", Keywords: []string{
		"investment", "invest", "stock", "shares", "mutual fund", "cowrywise", "piggyvest", "risevest",
		"bamboo", "treasury bill",
	}},
	{Category: "Charity & Donations", Keywords: []string{
		"donation", "church", "mosque", "tithe", "offering", "charity", "zakat",
	}},
	{Category: "Taxes", Keywords: []string{
		" tax", " firs ", "lirs", "tax payment",
	}},
}
