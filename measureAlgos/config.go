package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	jitter "github.com/isovector-polarimeter/jitter_go/pkg"
)

func LoadConfiguration(filename string) (jitter.Configuration, error) {
	config := jitter.DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func parseFractions(list string) ([]float64, error) {
	var fractions []float64
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fraction %q: %w", field, err)
		}
		if !(f > 0 && f < 1) {
			return nil, fmt.Errorf("fraction %v not in (0, 1)", f)
		}
		fractions = append(fractions, f)
	}
	if len(fractions) == 0 {
		return nil, fmt.Errorf("no fractions in %q", list)
	}
	return fractions, nil
}

func parseMethods(list string) ([]jitter.VarianceMethod, error) {
	var methods []jitter.VarianceMethod
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var m jitter.VarianceMethod
		if err := json.Unmarshal([]byte(strconv.Quote(field)), &m); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no variance methods in %q", list)
	}
	return methods, nil
}
