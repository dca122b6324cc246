package runtime

import (
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/simbridge/errors"
	"github.com/wippyai/simbridge/transcoder"
)

// signature is a function declaration read from WIT text.
type signature struct {
	params  []wit.Type
	results []wit.Type
}

func (s *signature) String() string {
	out := "func(" + transcoder.JoinTypes(s.params) + ")"
	switch len(s.results) {
	case 0:
	case 1:
		out += " -> " + transcoder.TypeString(s.results[0])
	default:
		out += " -> (" + transcoder.JoinTypes(s.results) + ")"
	}
	return out
}

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;\n]+))?`)

// parseSignatures extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
func parseSignatures(witText string) (map[string]*signature, error) {
	sigs := make(map[string]*signature)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		sig := &signature{}
		for _, p := range splitTypeList(paramsStr) {
			typStr := p
			if idx := strings.Index(p, ":"); idx != -1 {
				typStr = p[idx+1:]
			}
			t, err := parseType(typStr)
			if err != nil {
				return nil, errors.New(errors.PhaseParse, errors.KindMarshal).
					Path(name, "params").
					Detail("parse param type %q", strings.TrimSpace(typStr)).
					Cause(err).
					Build()
			}
			sig.params = append(sig.params, t)
		}

		if resultStr != "" && resultStr != "()" {
			parts := []string{resultStr}
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				parts = splitTypeList(resultStr[1 : len(resultStr)-1])
			}
			for _, part := range parts {
				t, err := parseType(part)
				if err != nil {
					return nil, errors.New(errors.PhaseParse, errors.KindMarshal).
						Path(name, "results").
						Detail("parse result type %q", part).
						Cause(err).
						Build()
				}
				sig.results = append(sig.results, t)
			}
		}

		sigs[name] = sig
	}

	if len(sigs) == 0 {
		return nil, errors.New(errors.PhaseParse, errors.KindMarshal).
			Detail("no functions found in WIT text").
			Build()
	}
	return sigs, nil
}

// splitTypeList splits a comma separated list, ignoring commas nested in
// <> or ().
func splitTypeList(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}
	return result
}

func parseType(s string) (wit.Type, error) {
	return wit.ParseType(strings.TrimSpace(s))
}

// signature returns the declared signature of function name, or nil when
// the module declares none. Core export names use underscores where WIT
// uses dashes; both spellings are accepted.
func (m *module) signature(name string) (*signature, error) {
	if !m.sigParsed {
		m.sigParsed = true
		if text := m.wasm.WIT(); text != "" {
			m.signatures, m.sigErr = parseSignatures(text)
		}
	}
	if m.sigErr != nil {
		return nil, m.sigErr
	}
	if sig, ok := m.signatures[name]; ok {
		return sig, nil
	}
	return m.signatures[strings.ReplaceAll(name, "_", "-")], nil
}

// checkSignature compares the exchange's WIT view against a declared
// signature.
func checkSignature(sig *signature, shape transcoder.Shape) error {
	params := shape.WITParams()
	if i := transcoder.CompareTypes(sig.params, params); i >= 0 {
		return errors.New(errors.PhaseMarshal, errors.KindMarshal).
			Path("params").
			WitType(sig.String()).
			Detail("parameter %d: declared %s, exchange passes %s", i, typeAt(sig.params, i), typeAt(params, i)).
			Build()
	}
	results := shape.WITResults()
	if i := transcoder.CompareTypes(sig.results, results); i >= 0 {
		return errors.New(errors.PhaseUnmarshal, errors.KindArityMismatch).
			Path("results").
			WitType(sig.String()).
			Detail("result %d: declared %s, exchange expects %s", i, typeAt(sig.results, i), typeAt(results, i)).
			Build()
	}
	return nil
}

func typeAt(types []wit.Type, i int) string {
	if i >= len(types) {
		return "nothing"
	}
	return transcoder.TypeString(types[i])
}
