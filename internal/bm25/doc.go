// Package bm25 fits and applies the BM25 relevance model over count
// matrices produced by the matrix package.
//
// Fit builds (or accepts) a vocabulary, counts and prunes the fit corpus,
// then freezes idf weights, the average document length and, optionally,
// the maximum fit-corpus score into an immutable Model. Transform scores any
// corpus against that frozen state:
//
//	len_norm[d]   = len[d] / avg_doc_length
//	contrib[d, f] = idf[f] * tf*(k1+1) / (tf + k1*(1 - b + b*len_norm[d]))
//	score[d]      = max(Σ_f contrib[d, f], epsilon)
//
// A Model never changes after Fit returns, so any number of goroutines may
// call Transform, Weights or Score on it concurrently.
package bm25
