// Package agent holds the interviewer's content: the coding problem
// pool, the persona prompt and the code-change classifier that decides
// when an edit deserves a spoken comment.
package agent

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Problem is one coding exercise the interviewer can pose.
type Problem struct {
	Name             string `yaml:"name" json:"name"`
	Difficulty       string `yaml:"difficulty" json:"difficulty"`
	Description      string `yaml:"description" json:"description"`
	ExpectedApproach string `yaml:"expected_approach" json:"-"`
}

// defaultProblems is the built-in pool used when no problems file is
// configured.
var defaultProblems = []Problem{
	{
		Name:             "Two Sum",
		Difficulty:       "Easy",
		Description:      "Given an array of integers and a target sum, find two numbers that add up to the target. Return their indices.",
		ExpectedApproach: "Use a hash map to store seen numbers. For each element, check if (target - current) exists.",
	},
	{
		Name:             "Valid Parentheses",
		Difficulty:       "Easy",
		Description:      "Given a string containing just '(', ')', '{', '}', '[' and ']', determine if the input string has valid bracket matching.",
		ExpectedApproach: "Use a stack. Push opening brackets, pop on closing and verify match. Stack should be empty at end.",
	},
	{
		Name:             "Maximum Subarray",
		Difficulty:       "Medium",
		Description:      "Find the contiguous subarray with the largest sum. This is known as Kadane's algorithm.",
		ExpectedApproach: "Kadane's algorithm: maintain currentSum and maxSum. At each element, currentSum = max(element, currentSum + element).",
	},
}

type problemsFile struct {
	Problems []Problem `yaml:"problems"`
}

// LoadProblems reads a YAML problem pool. An empty path selects the
// built-in defaults.
func LoadProblems(path string) ([]Problem, error) {
	if path == "" {
		return append([]Problem(nil), defaultProblems...), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problems file: %w", err)
	}
	var parsed problemsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse problems file: %w", err)
	}
	if len(parsed.Problems) == 0 {
		return nil, fmt.Errorf("problems file %s contains no problems", path)
	}
	for i, p := range parsed.Problems {
		if p.Name == "" || p.Description == "" {
			return nil, fmt.Errorf("problem %d is missing a name or description", i)
		}
	}
	return parsed.Problems, nil
}

// Pick selects one problem at random for a new session.
func Pick(problems []Problem) Problem {
	return problems[rand.Intn(len(problems))]
}
