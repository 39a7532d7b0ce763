package templating

import "testing"

func customVariable(name, current string, options ...string) *CustomVariable {
	variable := InitialCustomVariable()
	variable.Name = name
	variable.Current = VariableOption{Text: current, Value: current}
	for _, option := range options {
		variable.Options = append(variable.Options, VariableOption{Text: option, Value: option})
	}
	return variable
}

func allSelected(name string, values ...string) *CustomVariable {
	variable := customVariable(name, "", values...)
	variable.IncludeAll = true
	variable.Options = append([]VariableOption{{Text: AllVariableText, Value: AllVariableValue}}, variable.Options...)
	variable.Current = VariableOption{Text: AllVariableText, Value: AllVariableValue}
	return variable
}

func TestInterpolate(t *testing.T) {
	withAllValue := allSelected("pod", "x", "y")
	withAllValue.AllValue = "$env-.*"

	state := NewState(
		customVariable("env", "prod.eu"),
		allSelected("host", "a", "b"),
		allSelected("single", "only"),
		withAllValue,
	)

	cases := []struct {
		name   string
		target string
		format string
		want   string
	}{
		{name: "dollar", target: "up{env=\"$env\"}", want: "up{env=\"prod.eu\"}"},
		{name: "brackets", target: "[[env]]", want: "prod.eu"},
		{name: "braces", target: "${env}", want: "prod.eu"},
		{name: "braces with path", target: "${env.name}", want: "prod.eu"},
		{name: "default format applies", target: "$env", format: FormatRegex, want: `prod\.eu`},
		{name: "inline format wins", target: "${env:raw}", format: FormatRegex, want: "prod.eu"},
		{name: "bracket format", target: "[[env:regex]]", want: `prod\.eu`},
		{name: "unknown left as written", target: "$missing and ${other}", want: "$missing and ${other}"},
		{name: "multiple references", target: "$env/$env", want: "prod.eu/prod.eu"},
		{name: "all glob", target: "$host", want: "{a,b}"},
		{name: "all regex", target: "$host", format: FormatRegex, want: "(a|b)"},
		{name: "all pipe", target: "${host:pipe}", want: "a|b"},
		{name: "all csv", target: "${host:csv}", want: "a,b"},
		{name: "all raw", target: "${host:raw}", want: "a,b"},
		{name: "all single value", target: "$single", format: FormatRegex, want: "only"},
		{name: "custom all value is interpolated", target: "$pod", want: "prod.eu-.*"},
		{name: "empty target", target: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Interpolate(state, tc.target, tc.format); got != tc.want {
				t.Fatalf("Interpolate(%q, %q) = %q, want %q", tc.target, tc.format, got, tc.want)
			}
		})
	}
}

func TestInterpolateEmptyState(t *testing.T) {
	if got := Interpolate(State{}, "$env", ""); got != "$env" {
		t.Fatalf("expected reference to survive an empty state, got %q", got)
	}
}

func TestInterpolateCustomAllValueCycles(t *testing.T) {
	self := allSelected("x", "1", "2")
	self.AllValue = "$x"
	a := allSelected("a", "1")
	a.AllValue = "$b-1"
	b := allSelected("b", "2")
	b.AllValue = "${a}-2"
	twice := allSelected("twice", "3")
	twice.AllValue = "$env|$env"

	state := NewState(customVariable("env", "prod"), self, a, b, twice)

	cases := []struct {
		target string
		want   string
	}{
		{target: "$x", want: "$x"},
		{target: "$a", want: "${a}-2-1"},
		{target: "$b", want: "$b-1-2"},
		{target: "$twice", want: "prod|prod"},
	}
	for _, tc := range cases {
		if got := Interpolate(state, tc.target, FormatRegex); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.target, got, tc.want)
		}
	}
}

func TestContainsVariable(t *testing.T) {
	cases := []struct {
		name    string
		targets []string
		want    bool
	}{
		{name: "env", targets: []string{"label_values(up{env=\"$env\"}, host)"}, want: true},
		{name: "env", targets: []string{"", "[[env]]"}, want: true},
		{name: "env", targets: []string{"${env:regex}"}, want: true},
		{name: "env", targets: []string{"$environment"}, want: false},
		{name: "env", targets: []string{"env"}, want: false},
		{name: "env", targets: nil, want: false},
		{name: "", targets: []string{"$env"}, want: false},
	}
	for _, tc := range cases {
		if got := ContainsVariable(tc.name, tc.targets...); got != tc.want {
			t.Fatalf("ContainsVariable(%q, %q) = %v, want %v", tc.name, tc.targets, got, tc.want)
		}
	}
}

func TestRegexEscape(t *testing.T) {
	if got, want := RegexEscape(`a.b/c(d)|e*`), `a\.b\/c\(d\)\|e\*`; got != want {
		t.Fatalf("RegexEscape = %q, want %q", got, want)
	}
}
