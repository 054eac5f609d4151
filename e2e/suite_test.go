// Package e2e drives complete elaboration sessions through
// pkg/coordinator exactly as cmd/elabdriver would, one Describe per
// scenario of spec.md §8, grounded on the teacher's ginkgo/gomega test
// shape for driver-level behavior (see sarchlab/zeonica's
// core_suite_test.go / api_suite_test.go: one *_suite_test.go calling
// RunSpecs, scenario bodies in sibling files).
package e2e

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Elaboration Driver E2E Suite")
}
