package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario describes a simulation run: a fixed number of steps, each
// performing the same exchanges in order.
type Scenario struct {
	Path      []string   `yaml:"path"`
	Exchanges []Exchange `yaml:"exchanges"`
	Steps     int        `yaml:"steps"`
	DT        float64    `yaml:"dt"`
	StartTime float64    `yaml:"start_time"`
}

// Exchange is one call made every step.
type Exchange struct {
	Name       string    `yaml:"name"`
	Module     string    `yaml:"module"`
	Function   string    `yaml:"function"`
	Doubles    []float64 `yaml:"doubles"`
	Ints       []int32   `yaml:"ints"`
	Strings    []string  `yaml:"strings"`
	DoublesOut int       `yaml:"doubles_out"`
	IntsOut    int       `yaml:"ints_out"`
	// Time prepends the simulated time to the doubles.
	Time   bool `yaml:"time"`
	Retain bool `yaml:"retain"`
}

func (e *Exchange) label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Module + "." + e.Function
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if sc.Steps <= 0 {
		sc.Steps = 1
	}
	if sc.DT == 0 {
		sc.DT = 1
	}
	if len(sc.Exchanges) == 0 {
		return fmt.Errorf("scenario has no exchanges")
	}
	for i, e := range sc.Exchanges {
		if e.Module == "" || e.Function == "" {
			return fmt.Errorf("exchange %d: module and function are required", i)
		}
		if e.DoublesOut < 0 || e.IntsOut < 0 {
			return fmt.Errorf("exchange %d: negative output count", i)
		}
	}
	return nil
}

func parseDoubles(s string) ([]float64, error) {
	var out []float64
	for _, f := range splitList(s) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("double %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int32, error) {
	var out []int32
	for _, f := range splitList(s) {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("integer %q: %w", f, err)
		}
		out = append(out, int32(v))
	}
	return out, nil
}

func parseStrings(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// modules lists the distinct modules the scenario calls, in first-use order.
func (sc *Scenario) modules() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range sc.Exchanges {
		if !seen[e.Module] {
			seen[e.Module] = true
			out = append(out, e.Module)
		}
	}
	return out
}
