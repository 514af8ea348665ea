package assembler

import "github.com/pkg/errors"

// BadReferenceSequence is returned when a reference sequence cannot be
// inserted into the graph: it is shorter than k, or it contains a base
// outside the ACGT alphabet (invariant A3).
var BadReferenceSequence = errors.New("assembler: reference sequence cannot be represented in the k-mer graph")

// GraphDegenerate names the condition in which the graph's reference path
// invariant (A2, a single unambiguous reference walk from head to tail) no
// longer holds, or the graph is not a DAG, after pruning. Prune reports
// that condition by clearing the graph and returning false; no function in
// this package returns GraphDegenerate itself.
var GraphDegenerate = errors.New("assembler: graph no longer has a single unambiguous reference path")
