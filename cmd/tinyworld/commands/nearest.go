package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/andrew-r-thomas/tinyworld/internal/index/flat"
	"github.com/andrew-r-thomas/tinyworld/internal/meta"
	"github.com/andrew-r-thomas/tinyworld/internal/util"
	"github.com/andrew-r-thomas/tinyworld/tinyworld"
)

// runSummary is stashed in a side-file next to the output so repeated
// runs can be compared without re-parsing the JSONL.
type runSummary struct {
	Words int
	Dim   int
	K     int
	Exact bool
}

type inRecord struct {
	Word string    `json:"word"`
	Emb  []float32 `json:"emb"`
}

type outRecord struct {
	Word    string    `json:"word"`
	Emb     []float32 `json:"emb"`
	Matches []string  `json:"matches"`
}

var (
	nearestInput  string
	nearestOutput string
	nearestK      int
	nearestEf     int
	nearestExact  bool
	nearestDist   uint32
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Annotate JSONL embeddings with their nearest neighbors",
	Long: `Reads JSONL lines of the form {"word": ..., "emb": [...]} and writes
the same lines extended with a "matches" list of the nearest words,
closest first under the selected distance. With the default dot-product
distance a longer vector pointing the same way scores closer than the
word itself, so a word does not always match itself first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNearest()
	},
}

func init() {
	nearestCmd.Flags().StringVarP(&nearestInput, "input", "i", "test_data.json", "input JSONL file ('-' for stdin)")
	nearestCmd.Flags().StringVarP(&nearestOutput, "output", "o", "-", "output JSONL file ('-' for stdout)")
	nearestCmd.Flags().IntVarP(&nearestK, "k", "k", 10, "number of matches per word")
	nearestCmd.Flags().IntVar(&nearestEf, "ef", 64, "search candidate width (graph mode)")
	nearestCmd.Flags().BoolVar(&nearestExact, "exact", false, "exhaustive scan instead of the graph index")
	nearestCmd.Flags().Uint32Var(&nearestDist, "dist", tinyworld.DistDotProduct, "distance id (0=dot, 1=euclidean, 2=cosine)")
	rootCmd.AddCommand(nearestCmd)
}

func runNearest() error {
	records, err := readRecords(nearestInput)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records in %s", nearestInput)
	}
	dim := len(records[0].Emb)
	for i, r := range records {
		if len(r.Emb) != dim {
			return fmt.Errorf("line %d: embedding has %d dims, expected %d", i+1, len(r.Emb), dim)
		}
	}
	slog.Info("loaded embeddings", "count", len(records), "dim", dim)

	var matchesFor func(query []float32) ([]string, error)
	if nearestExact {
		matchesFor, err = exactMatcher(records, dim)
	} else {
		var cleanup func()
		matchesFor, cleanup, err = indexMatcher(records, dim)
		if cleanup != nil {
			defer cleanup()
		}
	}
	if err != nil {
		return err
	}

	out := os.Stdout
	if nearestOutput != "-" {
		out, err = os.Create(nearestOutput)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	enc := json.NewEncoder(w)
	for _, r := range records {
		matches, err := matchesFor(r.Emb)
		if err != nil {
			return err
		}
		if err := enc.Encode(outRecord{Word: r.Word, Emb: r.Emb, Matches: matches}); err != nil {
			return err
		}
	}

	if nearestOutput != "-" {
		ms, err := meta.Open(nearestOutput + ".meta")
		if err != nil {
			return err
		}
		defer ms.Close()
		if err := ms.Insert(&runSummary{Words: len(records), Dim: dim, K: nearestK, Exact: nearestExact}); err != nil {
			return err
		}
	}
	return nil
}

func readRecords(path string) ([]inRecord, error) {
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var records []inRecord
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r inRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return records, nil
}

func exactMatcher(records []inRecord, dim int) (func([]float32) ([]string, error), error) {
	calc, err := util.NewCalculator(nearestDist)
	if err != nil {
		return nil, err
	}
	ix := flat.New(dim, calc)
	words := make(map[tinyworld.ItemID]string, len(records))
	for i, r := range records {
		id := tinyworld.ItemID{Slot: uint32(i)}
		if err := ix.Add(id, r.Emb); err != nil {
			return nil, err
		}
		words[id] = r.Word
	}
	return func(query []float32) ([]string, error) {
		found, err := ix.Search(query, nearestK)
		if err != nil {
			return nil, err
		}
		matches := make([]string, len(found))
		for i, c := range found {
			matches[i] = words[c.ID]
		}
		return matches, nil
	}, nil
}

func indexMatcher(records []inRecord, dim int) (func([]float32) ([]string, error), func(), error) {
	dir, err := os.MkdirTemp("", "tinyworld-nearest-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	session, err := tinyworld.Create(filepath.Join(dir, "nearest.tw"),
		tinyworld.WithDimension(dim),
		tinyworld.WithDistance(nearestDist),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	words := make(map[tinyworld.ItemID]string, len(records))
	for _, r := range records {
		id, err := session.Insert(r.Emb)
		if err != nil {
			session.Close()
			cleanup()
			return nil, nil, err
		}
		words[id] = r.Word
	}
	slog.Debug("built index", "vectors", session.Size())

	wrapped := func() {
		session.Close()
		cleanup()
	}
	return func(query []float32) ([]string, error) {
		ef := nearestEf
		if ef < nearestK {
			ef = nearestK
		}
		found, err := session.Search(query, nearestK, ef)
		if err != nil {
			return nil, err
		}
		matches := make([]string, len(found))
		for i, c := range found {
			matches[i] = words[c.ID]
		}
		return matches, nil
	}, wrapped, nil
}
