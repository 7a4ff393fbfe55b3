package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stand/pkg/types"
)

// sampleScript writes a fixed sample CSV and fails when run as chain 3.
const sampleScript = scriptHeader + `for a in "$@"; do
  case "$a" in id=3) echo "chain blew up" >&2; exit 1 ;; esac
done
cat > "$out" <<'CSV'
` + sampleCSV + `CSV
`

func TestSample(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)

	f, err := e.Sample(context.Background(), types.SampleRequest{Model: "bernoulli", Chains: 2, Cores: 2})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if f.Chains() != 2 {
		t.Fatalf("chains: %d", f.Chains())
	}
	if ids := f.ChainIDs(); ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("chain ids: %v", ids)
	}
	if cols := f.ColumnNames(); len(cols) != 2 || cols[1] != "theta" {
		t.Fatalf("columns: %v", cols)
	}
	if f.DrawsPerChain() != 2 || len(f.Draws()) != 4 {
		t.Fatalf("draws: per-chain %d combined %d", f.DrawsPerChain(), len(f.Draws()))
	}
	if len(f.CSVFiles) != 2 || len(f.Cmds) != 2 {
		t.Fatalf("output files: %v", f.CSVFiles)
	}
}

func TestSampleChainFailure(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)

	_, err := e.Sample(context.Background(), types.SampleRequest{Model: "bernoulli", Chains: 3, Cores: 3})
	if !IsRunFailed(err) {
		t.Fatalf("expected run-failed, got %v", err)
	}
	if !strings.Contains(err.Error(), "chain 3") {
		t.Fatalf("error should name the failed chain: %v", err)
	}
}

func TestSampleValidation(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)
	ctx := context.Background()

	cases := []struct {
		name string
		req  types.SampleRequest
	}{
		{"negative chains", types.SampleRequest{Model: "bernoulli", Chains: -1}},
		{"negative cores", types.SampleRequest{Model: "bernoulli", Cores: -2}},
		{"chain id count mismatch", types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDs: []int{1}}},
		{"non-positive chain id", types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDs: []int{0, 1}}},
		{"duplicate chain id", types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDs: []int{1, 1}}},
		{"missing init file", types.SampleRequest{Model: "bernoulli", InitFile: "/nonexistent/init.json"}},
		{"ids and offset together", types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDs: []int{1, 2}, ChainIDOffset: 5}},
		{"negative offset", types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDOffset: -1}},
		{"seed and seeds together", types.SampleRequest{Model: "bernoulli", Chains: 2, Seed: 1, Seeds: []int64{2, 3}}},
		{"seeds count mismatch", types.SampleRequest{Model: "bernoulli", Chains: 2, Seeds: []int64{2}}},
		{"init files count mismatch", types.SampleRequest{Model: "bernoulli", Chains: 2, InitFiles: []string{"/tmp/a.json"}}},
		{"step sizes count mismatch", types.SampleRequest{Model: "bernoulli", Chains: 2, StepSizes: []float64{0.1}}},
		{"non-positive step size", types.SampleRequest{Model: "bernoulli", Chains: 2, StepSizes: []float64{0.1, 0}}},
	}
	for _, c := range cases {
		if _, err := e.Sample(ctx, c.req); !IsInvalidArgument(err) {
			t.Fatalf("%s: expected invalid-argument, got %v", c.name, err)
		}
	}
}

func TestSampleExplicitChainIDs(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)

	f, err := e.Sample(context.Background(), types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDs: []int{7, 9}})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if ids := f.ChainIDs(); ids[0] != 7 || ids[1] != 9 {
		t.Fatalf("chain ids: %v", ids)
	}
	for _, p := range f.CSVFiles {
		if !strings.Contains(p, "-7.csv") && !strings.Contains(p, "-9.csv") {
			t.Fatalf("csv name should carry chain id: %s", p)
		}
	}
}

func TestSampleChainIDOffset(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)

	f, err := e.Sample(context.Background(), types.SampleRequest{Model: "bernoulli", Chains: 2, ChainIDOffset: 10})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if ids := f.ChainIDs(); ids[0] != 11 || ids[1] != 12 {
		t.Fatalf("chain ids: %v", ids)
	}
}

func TestSamplePerChainSeedsAndStepSizes(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)

	f, err := e.Sample(context.Background(), types.SampleRequest{
		Model:     "bernoulli",
		Chains:    2,
		Seeds:     []int64{101, 102},
		StepSizes: []float64{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for i, want := range []string{"seed=101", "seed=102"} {
		cmd := strings.Join(f.Cmds[i], " ")
		if !strings.Contains(cmd, want) {
			t.Fatalf("chain %d cmd missing %s: %s", i, want, cmd)
		}
	}
	for i, want := range []string{"stepsize=0.1", "stepsize=0.2"} {
		cmd := strings.Join(f.Cmds[i], " ")
		if !strings.Contains(cmd, want) {
			t.Fatalf("chain %d cmd missing %s: %s", i, want, cmd)
		}
	}
}

func TestSamplePerChainInitFiles(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	m := fakeModel(t, d, "bernoulli", sampleScript)
	e := newTestEngine(t, t.TempDir(), m)

	inits := make([]string, 2)
	for i := range inits {
		p := filepath.Join(d, fmt.Sprintf("init-%d.json", i+1))
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write init: %v", err)
		}
		inits[i] = p
	}
	f, err := e.Sample(context.Background(), types.SampleRequest{Model: "bernoulli", Chains: 2, InitFiles: inits})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for i, want := range inits {
		cmd := strings.Join(f.Cmds[i], " ")
		if !strings.Contains(cmd, "init="+want) {
			t.Fatalf("chain %d cmd missing init %s: %s", i, want, cmd)
		}
	}

	// one missing per-chain init fails up front
	inits[1] = filepath.Join(d, "absent.json")
	if _, err := e.Sample(context.Background(), types.SampleRequest{Model: "bernoulli", Chains: 2, InitFiles: inits}); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument for missing per-chain init, got %v", err)
	}
}

func TestResolveChainIDs(t *testing.T) {
	ids, err := resolveChainIDs(nil, 0, 3)
	if err != nil || len(ids) != 3 || ids[2] != 3 {
		t.Fatalf("default ids: %v %v", ids, err)
	}
	ids, err = resolveChainIDs(nil, 4, 2)
	if err != nil || ids[0] != 5 || ids[1] != 6 {
		t.Fatalf("offset ids: %v %v", ids, err)
	}
	if _, err := resolveChainIDs([]int{2, 1}, 0, 2); err != nil {
		t.Fatalf("explicit ids: %v", err)
	}
}
