package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamware/fluxgraph/internal/optimizer"
)

func TestParseRuleKnown(t *testing.T) {
	cases := map[string]optimizer.Rule{
		"sgd":     optimizer.RuleSGD,
		"adagrad": optimizer.RuleAdaGrad,
		"adam":    optimizer.RuleAdam,
		"ftrl":    optimizer.RuleFTRL,
	}
	for name, want := range cases {
		got, err := parseRule(name)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseRuleUnknown(t *testing.T) {
	_, err := parseRule("nonexistent")
	assert.Error(t, err)
}
