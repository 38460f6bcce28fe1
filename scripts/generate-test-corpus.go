//go:build ignore

// Package main generates a synthetic JSONL corpus for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -docs 10000 -output testdata/bench.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numDocs = flag.Int("docs", 10000, "Number of documents to generate")
	output  = flag.String("output", "testdata/bench.jsonl", "Output JSONL file")
	seed    = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var interventions = []string{
	"mRNA vaccination", "statin therapy", "CRISPR base editing",
	"checkpoint inhibition", "beta blockade", "fecal transplantation",
	"deep brain stimulation", "monoclonal antibody infusion",
	"cognitive behavioral therapy", "intermittent fasting",
}

var conditions = []string{
	"influenza", "sickle cell disease", "melanoma", "type two diabetes",
	"atrial fibrillation", "Crohn disease", "Parkinson disease",
	"rheumatoid arthritis", "major depressive disorder", "obesity",
}

var outcomes = []string{
	"reduced all-cause mortality", "improved progression-free survival",
	"lowered hospitalization rates", "showed no significant benefit",
	"increased adverse event incidence", "improved quality of life scores",
	"reduced symptom severity", "delayed disease onset",
}

var journals = []string{
	"NEJM", "Lancet", "JAMA", "BMJ", "Nature Medicine",
	"Annals of Internal Medicine", "Cell", "Science Translational Medicine",
}

var meshPool = []string{
	"Humans", "Female", "Male", "Aged", "Adult", "Randomized Controlled Trial",
	"Cohort Studies", "Treatment Outcome", "Risk Factors", "Prospective Studies",
}

type doc struct {
	DocID    string         `json:"doc_id"`
	Content  string         `json:"content"`
	Title    string         `json:"title"`
	Abstract string         `json:"abstract"`
	Metadata map[string]any `json:"metadata"`
}

func generateDoc(rng *rand.Rand, n int) doc {
	intervention := interventions[rng.Intn(len(interventions))]
	condition := conditions[rng.Intn(len(conditions))]
	outcome := outcomes[rng.Intn(len(outcomes))]
	year := 2000 + rng.Intn(26)

	title := fmt.Sprintf("%s for %s: a randomized trial", intervention, condition)
	abstract := fmt.Sprintf(
		"We enrolled %d participants with %s and assigned them to %s or standard care. "+
			"Over a median follow-up of %d months the intervention %s.",
		100+rng.Intn(9900), condition, intervention, 6+rng.Intn(54), outcome)

	mesh := make([]string, 0, 3)
	for _, i := range rng.Perm(len(meshPool))[:3] {
		mesh = append(mesh, meshPool[i])
	}

	return doc{
		DocID:    fmt.Sprintf("pmid-%07d", n+1),
		Content:  title + " " + abstract,
		Title:    title,
		Abstract: abstract,
		Metadata: map[string]any{
			"year":       year,
			"journal":    journals[rng.Intn(len(journals))],
			"mesh_terms": mesh,
		},
	}
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if dir := filepath.Dir(*output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
			os.Exit(1)
		}
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for n := 0; n < *numDocs; n++ {
		if err := enc.Encode(generateDoc(rng, n)); err != nil {
			fmt.Fprintf(os.Stderr, "encode document %d: %v\n", n, err)
			os.Exit(1)
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "flush output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d documents in %s\n", *numDocs, *output)
}
