// internal/service/detect/extractor.go

package detect

import (
	"math"
	"sort"
	"strings"

	"creatorpulse/internal/domain/content"
	"creatorpulse/internal/domain/trend"
)

// ExtractorConfig contains tunables for topic extraction
type ExtractorConfig struct {
	MinRecords       int
	MaxVocabulary    int
	MaxNGram         int
	MinDocFrequency  int
	MinClusters      int
	MaxClusters      int
	MinClusterSize   int
	KeywordsPerTopic int
	MaxIterations    int
}

// DefaultExtractorConfig returns the default extraction tuning
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MinRecords:       10,
		MaxVocabulary:    100,
		MaxNGram:         3,
		MinDocFrequency:  2,
		MinClusters:      3,
		MaxClusters:      10,
		MinClusterSize:   2,
		KeywordsPerTopic: 5,
		MaxIterations:    20,
	}
}

// Extractor groups content records into topic clusters using TF-IDF
// weighted n-gram vectors and cosine k-means.
type Extractor struct {
	config    ExtractorConfig
	tokenizer *Tokenizer
}

// NewExtractor creates a new topic extractor
func NewExtractor(tokenizer *Tokenizer, config ExtractorConfig) *Extractor {
	return &Extractor{
		config:    config,
		tokenizer: tokenizer,
	}
}

// document is one record's weighted term vector
type document struct {
	recordID string
	vector   []float64
}

// Extract clusters the records into topics. It returns
// trend.ErrInsufficientData when the corpus is below the clustering floor,
// and an empty slice (no error) when the corpus is too homogeneous to
// produce usable clusters.
func (e *Extractor) Extract(records []content.Record) ([]trend.TopicCluster, error) {
	if len(records) < e.config.MinRecords {
		return nil, trend.ErrInsufficientData
	}

	// Stable input order so repeated runs over the same window produce
	// identical clusters.
	sorted := make([]content.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	vocab, docTerms := e.buildVocabulary(sorted)
	if len(vocab) == 0 {
		return nil, nil
	}

	docs := e.vectorize(sorted, vocab, docTerms)
	if len(docs) < e.config.MinRecords {
		return nil, nil
	}

	k := e.pickClusterCount(docs)
	centroids, assignments := e.cluster(docs, k)

	return e.buildClusters(vocab, docs, centroids, assignments), nil
}

// buildVocabulary selects the most informative n-gram terms across the
// corpus, dropping terms seen in fewer than MinDocFrequency documents and
// capping the vocabulary at MaxVocabulary terms by summed TF-IDF weight.
func (e *Extractor) buildVocabulary(records []content.Record) ([]string, []map[string]int) {
	docTerms := make([]map[string]int, len(records))
	docFreq := make(map[string]int)

	for i, rec := range records {
		tokens := e.tokenizer.Tokens(rec.Title + " " + rec.BodyText)
		counts := make(map[string]int)
		for n := 1; n <= e.config.MaxNGram; n++ {
			for j := 0; j+n <= len(tokens); j++ {
				counts[strings.Join(tokens[j:j+n], " ")]++
			}
		}
		docTerms[i] = counts
		for term := range counts {
			docFreq[term]++
		}
	}

	type weighted struct {
		term   string
		weight float64
	}
	totalDocs := float64(len(records))
	var candidates []weighted
	for term, df := range docFreq {
		if df < e.config.MinDocFrequency {
			continue
		}
		idf := math.Log(totalDocs/float64(df)) + 1
		total := 0.0
		for _, counts := range docTerms {
			if tf, ok := counts[term]; ok {
				total += float64(tf) * idf
			}
		}
		candidates = append(candidates, weighted{term: term, weight: total})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > e.config.MaxVocabulary {
		candidates = candidates[:e.config.MaxVocabulary]
	}

	vocab := make([]string, len(candidates))
	for i, c := range candidates {
		vocab[i] = c.term
	}
	sort.Strings(vocab)
	return vocab, docTerms
}

// vectorize builds L2-normalized TF-IDF vectors over the vocabulary,
// skipping documents with no in-vocabulary terms.
func (e *Extractor) vectorize(records []content.Record, vocab []string, docTerms []map[string]int) []document {
	docFreq := make([]int, len(vocab))
	for vi, term := range vocab {
		for _, counts := range docTerms {
			if counts[term] > 0 {
				docFreq[vi]++
			}
		}
	}

	totalDocs := float64(len(records))
	docs := make([]document, 0, len(records))
	for i, rec := range records {
		vec := make([]float64, len(vocab))
		norm := 0.0
		for vi, term := range vocab {
			tf := docTerms[i][term]
			if tf == 0 {
				continue
			}
			w := float64(tf) * (math.Log(totalDocs/float64(docFreq[vi])) + 1)
			vec[vi] = w
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for vi := range vec {
			vec[vi] /= norm
		}
		docs = append(docs, document{recordID: rec.ID, vector: vec})
	}
	return docs
}

// pickClusterCount sweeps k over the configured range and keeps the value
// with the best mean margin between cohesion (similarity to own centroid)
// and separation (similarity to the nearest other centroid).
func (e *Extractor) pickClusterCount(docs []document) int {
	maxK := e.config.MaxClusters
	if limit := len(docs) / 2; limit < maxK {
		maxK = limit
	}
	minK := e.config.MinClusters
	if minK < 2 {
		minK = 2
	}
	if maxK <= minK {
		return minK
	}

	bestK := minK
	bestQuality := math.Inf(-1)
	for k := minK; k <= maxK; k++ {
		centroids, assignments := e.cluster(docs, k)
		q := clusterQuality(docs, centroids, assignments)
		if q > bestQuality {
			bestQuality = q
			bestK = k
		}
	}
	return bestK
}

// cluster runs cosine k-means with deterministic farthest-first seeding.
func (e *Extractor) cluster(docs []document, k int) ([][]float64, []int) {
	if k > len(docs) {
		k = len(docs)
	}

	// Farthest-first seeding: start from the first document, then
	// repeatedly take the document least similar to any chosen seed.
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), docs[0].vector...))
	for len(centroids) < k {
		bestDoc := -1
		bestDist := -1.0
		for i, d := range docs {
			nearest := 0.0
			for _, c := range centroids {
				if s := dot(d.vector, c); s > nearest {
					nearest = s
				}
			}
			dist := 1 - nearest
			if dist > bestDist {
				bestDist = dist
				bestDoc = i
			}
		}
		centroids = append(centroids, append([]float64(nil), docs[bestDoc].vector...))
	}

	assignments := make([]int, len(docs))
	for iter := 0; iter < e.config.MaxIterations; iter++ {
		changed := false
		for i, d := range docs {
			best := 0
			bestSim := math.Inf(-1)
			for ci, c := range centroids {
				if s := dot(d.vector, c); s > bestSim {
					bestSim = s
					best = ci
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dim := len(docs[0].vector)
		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for ci := range centroids {
			sums[ci] = make([]float64, dim)
		}
		for i, d := range docs {
			ci := assignments[i]
			counts[ci]++
			for vi, v := range d.vector {
				sums[ci][vi] += v
			}
		}
		for ci := range centroids {
			if counts[ci] == 0 {
				continue
			}
			norm := 0.0
			for _, v := range sums[ci] {
				norm += v * v
			}
			if norm == 0 {
				continue
			}
			norm = math.Sqrt(norm)
			for vi := range sums[ci] {
				sums[ci][vi] /= norm
			}
			centroids[ci] = sums[ci]
		}
	}

	return centroids, assignments
}

// buildClusters converts centroids into topic clusters, keeping the top
// weighted terms as keywords and dropping clusters below the minimum size.
func (e *Extractor) buildClusters(vocab []string, docs []document, centroids [][]float64, assignments []int) []trend.TopicCluster {
	members := make([][]string, len(centroids))
	for i, d := range docs {
		ci := assignments[i]
		members[ci] = append(members[ci], d.recordID)
	}

	var clusters []trend.TopicCluster
	for ci, centroid := range centroids {
		if len(members[ci]) < e.config.MinClusterSize {
			continue
		}

		type weighted struct {
			term   string
			weight float64
		}
		var terms []weighted
		for vi, w := range centroid {
			if w > 0 {
				terms = append(terms, weighted{term: vocab[vi], weight: w})
			}
		}
		if len(terms) == 0 {
			continue
		}
		sort.Slice(terms, func(i, j int) bool {
			if terms[i].weight != terms[j].weight {
				return terms[i].weight > terms[j].weight
			}
			return terms[i].term < terms[j].term
		})
		if len(terms) > e.config.KeywordsPerTopic {
			terms = terms[:e.config.KeywordsPerTopic]
		}

		keywords := make([]string, len(terms))
		for i, t := range terms {
			keywords[i] = t.term
		}

		ids := append([]string(nil), members[ci]...)
		sort.Strings(ids)
		clusters = append(clusters, trend.TopicCluster{
			Keywords:        keywords,
			MemberRecordIDs: ids,
		})
	}
	return clusters
}

// clusterQuality is the mean cohesion-minus-separation margin across all
// documents. Higher means tighter, better separated clusters.
func clusterQuality(docs []document, centroids [][]float64, assignments []int) float64 {
	if len(docs) == 0 {
		return math.Inf(-1)
	}
	total := 0.0
	for i, d := range docs {
		own := dot(d.vector, centroids[assignments[i]])
		other := 0.0
		for ci, c := range centroids {
			if ci == assignments[i] {
				continue
			}
			if s := dot(d.vector, c); s > other {
				other = s
			}
		}
		total += own - other
	}
	return total / float64(len(docs))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
