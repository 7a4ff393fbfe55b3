package types

// Model represents a discoverable Stan program on disk, together with its
// compiled executable when one exists.
type Model struct {
	// Stable identifier for the model (program basename without extension).
	// example: bernoulli
	ID string `json:"id" example:"bernoulli"`
	// Human-friendly name.
	// example: bernoulli
	Name string `json:"name" example:"bernoulli"`
	// Absolute path to the Stan program file.
	// example: /home/user/models/stan/bernoulli.stan
	StanFile string `json:"stan_file" example:"/home/user/models/stan/bernoulli.stan"`
	// Absolute path to the compiled executable, empty until compiled.
	// example: /home/user/models/stan/bernoulli
	ExeFile string `json:"exe_file,omitempty" example:"/home/user/models/stan/bernoulli"`
	// Whether a compiled executable is present for this program.
	// example: true
	Compiled bool `json:"compiled" example:"true"`
}
