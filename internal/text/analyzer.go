package text

// Analyzer is the per-document feature pipeline:
// tokenize, expand to n-grams, drop stop words.
//
// The same Analyzer value is used when building the vocabulary and when
// counting, so fit-time and transform-time features always agree.
type Analyzer struct {
	Tokenizer Tokenizer
	MinN      int
	MaxN      int
	StopWords StopWords
}

// NewAnalyzer returns an Analyzer. A nil tokenizer selects the word
// tokenizer; a zero n-gram range selects unigrams.
func NewAnalyzer(tok Tokenizer, minN, maxN int, stopWords []string) Analyzer {
	if tok == nil {
		tok = NewWordTokenizer()
	}
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	return Analyzer{
		Tokenizer: tok,
		MinN:      minN,
		MaxN:      maxN,
		StopWords: NewStopWords(stopWords),
	}
}

// Analyze returns the surviving features of doc in order of appearance
// (grouped by n-gram size).
func (a Analyzer) Analyze(doc string) []string {
	tokens := a.Tokenizer.Tokenize(doc)
	return a.StopWords.Filter(Ngrams(tokens, a.MinN, a.MaxN))
}
