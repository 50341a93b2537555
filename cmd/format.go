package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fmillerrzero/odcv-app/internal/model"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

// scoreRow is the one-line summary of a score used by table, csv and yaml.
type scoreRow struct {
	Rank          int     `yaml:"rank"`
	BBL           string  `yaml:"bbl"`
	Address       string  `yaml:"address"`
	Total         int     `yaml:"total_score"`
	Savings       int     `yaml:"savings_score"`
	Deployment    int     `yaml:"deployment_score"`
	Level         string  `yaml:"opportunity_level"`
	SavingsPct    int     `yaml:"savings_potential_percent"`
	AnnualSavings float64 `yaml:"annual_savings_dollars"`
	Payback       float64 `yaml:"simple_payback_years"`
}

func summarize(scores []model.OpportunityScore) []scoreRow {
	rows := make([]scoreRow, len(scores))
	for i, s := range scores {
		rows[i] = scoreRow{
			Rank:          i + 1,
			BBL:           s.BBL,
			Address:       s.Address,
			Total:         s.TotalScore,
			Savings:       s.SavingsScore,
			Deployment:    s.DeploymentScore,
			Level:         string(s.OpportunityLevel),
			SavingsPct:    s.SavingsPotentialPercent,
			AnnualSavings: s.AnnualSavingsDollars,
			Payback:       s.Financials.SimplePaybackYears,
		}
	}
	return rows
}

var scoreHeader = []string{"RANK", "BBL", "ADDRESS", "SCORE", "SAVINGS", "DEPLOY", "LEVEL", "SAVINGS%", "ANNUAL$", "PAYBACK"}

func (r scoreRow) fields() []string {
	return []string{
		strconv.Itoa(r.Rank),
		r.BBL,
		r.Address,
		strconv.Itoa(r.Total),
		strconv.Itoa(r.Savings),
		strconv.Itoa(r.Deployment),
		r.Level,
		strconv.Itoa(r.SavingsPct),
		strconv.FormatFloat(r.AnnualSavings, 'f', 0, 64),
		strconv.FormatFloat(r.Payback, 'f', 1, 64),
	}
}

// writeScores renders ranked scores. json emits the full score objects.
func writeScores(w io.Writer, format string, scores []model.OpportunityScore) error {
	switch format {
	case formatJSON:
		return writeJSONOut(w, scores)
	case formatYAML:
		return writeYAMLOut(w, summarize(scores))
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(scoreHeader); err != nil {
			return eris.Wrap(err, "write csv header")
		}
		for _, r := range summarize(scores) {
			if err := cw.Write(r.fields()); err != nil {
				return eris.Wrap(err, "write csv row")
			}
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "flush csv")
	case formatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		writeTabRow(tw, scoreHeader)
		for _, r := range summarize(scores) {
			writeTabRow(tw, r.fields())
		}
		return eris.Wrap(tw.Flush(), "flush table")
	default:
		return eris.Errorf("unknown format %q (table|csv|yaml|json)", format)
	}
}

func writeTabRow(w io.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, f)
	}
	fmt.Fprintln(w)
}

func writeJSONOut(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func writeYAMLOut(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode yaml")
	}
	return eris.Wrap(enc.Close(), "encode yaml")
}

// writeDocument renders a single object as json or yaml. YAML keys follow
// the json field names.
func writeDocument(w io.Writer, format string, v any) error {
	if format != formatYAML {
		return writeJSONOut(w, v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "encode json")
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return eris.Wrap(err, "decode json")
	}
	return writeYAMLOut(w, generic)
}
