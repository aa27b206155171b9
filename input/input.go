package input

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// ValidationError reports a namelist field that failed a precondition check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("namelist validation failed: %s: %s", e.Field, e.Reason)
}

// Parameters obtained from the YAML namelist file
type Namelist struct {
	Time    TimeConfig    `yaml:"time"`
	Grid    GridConfig    `yaml:"grid"`
	Physics PhysicsConfig `yaml:"physics"`
	Output  OutputConfig  `yaml:"output"`
	FFTW    FFTWConfig    `yaml:"fftw"`
	Logging LoggingConfig `yaml:"logging"`
}

type TimeConfig struct {
	Duration float64 `yaml:"duration"`
	CFL      float64 `yaml:"cfl"`
	MaxStep  float64 `yaml:"max_step"`
}

type GridConfig struct {
	Length float64     `yaml:"length"`
	DNS    PointConfig `yaml:"dns"`
	LES    PointConfig `yaml:"les"`
}

type PointConfig struct {
	Points int `yaml:"points"`
}

type PhysicsConfig struct {
	Viscosity      float64              `yaml:"viscosity"`
	SubgridModel   int                  `yaml:"subgrid_model"`
	Noise          NoiseConfig          `yaml:"noise"`
	Hyperviscosity HyperviscosityConfig `yaml:"hyperviscosity"`
	DynamicEpsilon float64              `yaml:"dynamic_epsilon"`
}

type NoiseConfig struct {
	Exponent  float64 `yaml:"exponent"`
	Amplitude float64 `yaml:"amplitude"`
}

type HyperviscosityConfig struct {
	Enabled bool `yaml:"enabled"`
}

type OutputConfig struct {
	IntervalSave  float64 `yaml:"interval_save"`
	IntervalPrint float64 `yaml:"interval_print"`
	File          string  `yaml:"file"`
}

type FFTWConfig struct {
	Planning string `yaml:"planning"`
	Threads  int    `yaml:"threads"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func (nl *Namelist) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, nl); err != nil {
		return err
	}
	nl.applyDefaults()
	return nil
}

func (nl *Namelist) applyDefaults() {
	if nl.Grid.Length == 0 {
		nl.Grid.Length = 2 * 3.141592653589793
	}
	if nl.Physics.DynamicEpsilon == 0 {
		nl.Physics.DynamicEpsilon = 1e-12
	}
	if nl.FFTW.Planning == "" {
		nl.FFTW.Planning = "measure"
	}
	if nl.FFTW.Threads == 0 {
		nl.FFTW.Threads = 1
	}
	if nl.Logging.Level == "" {
		nl.Logging.Level = "info"
	}
}

// Validate checks every precondition the solver core relies on. The first
// violated field is reported; the core never sees a malformed namelist.
func (nl *Namelist) Validate() error {
	if nl.Time.Duration <= 0 {
		return &ValidationError{"time.duration", fmt.Sprintf("must be > 0, got %g", nl.Time.Duration)}
	}
	if nl.Time.CFL <= 0 || nl.Time.CFL >= 0.55 {
		return &ValidationError{"time.cfl", fmt.Sprintf("must be in (0, 0.55), got %g", nl.Time.CFL)}
	}
	if nl.Time.MaxStep <= 0 {
		return &ValidationError{"time.max_step", fmt.Sprintf("must be > 0, got %g", nl.Time.MaxStep)}
	}
	if nl.Grid.Length <= 0 {
		return &ValidationError{"grid.length", fmt.Sprintf("must be > 0, got %g", nl.Grid.Length)}
	}
	if err := checkPoints("grid.dns.points", nl.Grid.DNS.Points); err != nil {
		return err
	}
	if err := checkPoints("grid.les.points", nl.Grid.LES.Points); err != nil {
		return err
	}
	if nl.Grid.DNS.Points%nl.Grid.LES.Points != 0 {
		return &ValidationError{"grid.les.points",
			fmt.Sprintf("dns points (%d) must be a multiple of les points (%d)",
				nl.Grid.DNS.Points, nl.Grid.LES.Points)}
	}
	if nl.Physics.Viscosity <= 0 {
		return &ValidationError{"physics.viscosity", fmt.Sprintf("must be > 0, got %g", nl.Physics.Viscosity)}
	}
	if nl.Physics.SubgridModel < 0 || nl.Physics.SubgridModel > 4 {
		return &ValidationError{"physics.subgrid_model",
			fmt.Sprintf("must be in 0..4, got %d", nl.Physics.SubgridModel)}
	}
	if nl.Physics.Noise.Amplitude < 0 {
		return &ValidationError{"physics.noise.amplitude",
			fmt.Sprintf("must be >= 0, got %g", nl.Physics.Noise.Amplitude)}
	}
	if nl.Physics.DynamicEpsilon <= 0 {
		return &ValidationError{"physics.dynamic_epsilon",
			fmt.Sprintf("must be > 0, got %g", nl.Physics.DynamicEpsilon)}
	}
	if nl.Output.IntervalSave <= 0 {
		return &ValidationError{"output.interval_save",
			fmt.Sprintf("must be > 0, got %g", nl.Output.IntervalSave)}
	}
	if nl.Output.IntervalPrint <= 0 {
		return &ValidationError{"output.interval_print",
			fmt.Sprintf("must be > 0, got %g", nl.Output.IntervalPrint)}
	}
	switch nl.FFTW.Planning {
	case "estimate", "measure", "patient":
	default:
		return &ValidationError{"fftw.planning",
			fmt.Sprintf("must be estimate, measure or patient, got %q", nl.FFTW.Planning)}
	}
	if nl.FFTW.Threads < 1 {
		return &ValidationError{"fftw.threads", fmt.Sprintf("must be >= 1, got %d", nl.FFTW.Threads)}
	}
	return nil
}

func checkPoints(field string, n int) error {
	if n < 8 {
		return &ValidationError{field, fmt.Sprintf("must be >= 8, got %d", n)}
	}
	if n%2 != 0 {
		return &ValidationError{field, fmt.Sprintf("must be even, got %d", n)}
	}
	return nil
}

func (nl *Namelist) Print() {
	fmt.Printf("%8.5f\t\t= Duration\n", nl.Time.Duration)
	fmt.Printf("%8.5f\t\t= CFL\n", nl.Time.CFL)
	fmt.Printf("%8.5f\t\t= MaxStep\n", nl.Time.MaxStep)
	fmt.Printf("%8.5f\t\t= Domain Length\n", nl.Grid.Length)
	fmt.Printf("[%d]\t\t\t= DNS Points\n", nl.Grid.DNS.Points)
	fmt.Printf("[%d]\t\t\t= LES Points\n", nl.Grid.LES.Points)
	fmt.Printf("%8.3e\t\t= Viscosity\n", nl.Physics.Viscosity)
	fmt.Printf("[%d]\t\t\t= Subgrid Model\n", nl.Physics.SubgridModel)
	fmt.Printf("%8.5f\t\t= Noise Exponent\n", nl.Physics.Noise.Exponent)
	fmt.Printf("%8.3e\t\t= Noise Amplitude\n", nl.Physics.Noise.Amplitude)
	fmt.Printf("[%t]\t\t\t= Hyperviscosity\n", nl.Physics.Hyperviscosity.Enabled)
	fmt.Printf("%8.5f\t\t= Save Interval\n", nl.Output.IntervalSave)
	fmt.Printf("%8.5f\t\t= Print Interval\n", nl.Output.IntervalPrint)
	fmt.Printf("[%s]\t\t= FFT Planning\n", nl.FFTW.Planning)
	fmt.Printf("[%d]\t\t\t= FFT Threads\n", nl.FFTW.Threads)
}
