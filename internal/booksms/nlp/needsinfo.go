package nlp

// requirement is one missing-parameter check for an intent. The first
// unsatisfied requirement wins and its question becomes the follow-up.
type requirement struct {
	satisfied func(Params) bool
	question  string
}

// hasBookRef reports whether the parameters identify a book, either by
// explicit title or by a pronoun reference the resolver can handle.
func hasBookRef(p Params) bool {
	return p.Title != "" || p.Reference != "" || p.Ordinal > 0
}

// requiredParams lists, per intent kind, the parameters a handler cannot
// run without and the question to ask when one is missing. Intents absent
// from this table have no hard requirements.
var requiredParams = map[IntentKind][]requirement{
	IntentUpdateProgress: {
		{satisfied: hasBookRef, question: "Which book is that for?"},
		{
			satisfied: func(p Params) bool { return p.Page > 0 || p.Percent > 0 },
			question:  "What page are you on, or what percent done?",
		},
	},
	IntentRateBook: {
		{satisfied: hasBookRef, question: "Which book would you like to rate?"},
		{
			satisfied: func(p Params) bool { return p.Rating >= 1 },
			question:  "How many stars, 1-5?",
		},
	},
	IntentAddBook: {
		{
			satisfied: func(p Params) bool { return p.Title != "" },
			question:  "What's the title of the book to add?",
		},
	},
	IntentRemoveBook: {
		{satisfied: hasBookRef, question: "Which book should I remove?"},
	},
	IntentStartBook: {
		{satisfied: hasBookRef, question: "Which book are you starting?"},
	},
	IntentFinishBook: {
		{satisfied: hasBookRef, question: "Which book did you finish?"},
	},
	IntentWishlistAdd: {
		{
			satisfied: func(p Params) bool { return p.Title != "" },
			question:  "What's the title to put on your wishlist?",
		},
	},
	IntentSetGoal: {
		{
			satisfied: func(p Params) bool { return p.Goal > 0 },
			question:  "How many books is your goal for this year?",
		},
	},
	IntentGenreFilter: {
		{
			satisfied: func(p Params) bool { return p.Genre != "" },
			question:  "Which genre are you after?",
		},
	},
}

// applyNeedsMoreInfo fills NeedsMoreInfo/FollowUpQuestion from the
// per-intent requirement table. A follow-up already proposed by the hosted
// model is kept as-is.
func applyNeedsMoreInfo(pi *ParsedIntent) {
	if pi.NeedsMoreInfo {
		return
	}
	for _, req := range requiredParams[pi.Kind] {
		if !req.satisfied(pi.Params) {
			pi.NeedsMoreInfo = true
			pi.FollowUpQuestion = req.question
			return
		}
	}
}
