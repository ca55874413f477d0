package dissyslab

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrUnknownPort is returned when an explicit port reference names a
	// port that is not in the block's schema.
	ErrUnknownPort = errors.New("unknown port")
	// ErrAmbiguousPort is returned when a bare block/subgraph reference is
	// used where the role requires a port but the block has neither a
	// single port nor a declared default.
	ErrAmbiguousPort = errors.New("ambiguous port: no default and more than one candidate")
	// ErrDuplicateName is returned when two distinct child objects share a
	// name within a graph.
	ErrDuplicateName = errors.New("duplicate child name")
	// ErrReservedName is returned when a child is named "external", or when a
	// child or port name is empty or contains the "." qualifier separator.
	ErrReservedName = errors.New("reserved or invalid name")
	// ErrUnknownChild is returned when a connection references a child
	// that does not exist in the graph's scope.
	ErrUnknownChild = errors.New("unknown child")
	// ErrInvalidTopology is returned for acyclic-containment and
	// predecessor/successor graph-shape violations.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrUnconnectedPort is returned when a declared external port is never
	// the source/destination of a boundary connection.
	ErrUnconnectedPort = errors.New("external port never connected")
	// ErrOrphanLeaf is returned by ValidatePlan when a leaf block in the
	// compiled plan has an unbound port.
	ErrOrphanLeaf = errors.New("leaf block has an unbound port")
	// ErrStartupFailed is returned by Execute when a block's Startup hook
	// fails before any worker has started.
	ErrStartupFailed = errors.New("block startup failed")
)

// ValidationError aggregates every structural violation found by
// ValidateSpec or ValidatePlan in a single pass, so a user sees every
// problem at once instead of fixing one invariant at a time.
type ValidationError struct {
	Violations []Violation
}

// Violation names one offending child/port and a one-line remediation hint.
type Violation struct {
	Child string
	Port  string
	Err   error
	Hint  string
}

func (v Violation) String() string {
	sb := &strings.Builder{}
	sb.WriteString(v.Err.Error())
	if v.Child != "" {
		fmt.Fprintf(sb, " (child=%q", v.Child)
		if v.Port != "" {
			fmt.Fprintf(sb, " port=%q", v.Port)
		}
		sb.WriteString(")")
	}
	if v.Hint != "" {
		fmt.Fprintf(sb, ": %s", v.Hint)
	}
	return sb.String()
}

// Error renders every violation, one per line.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "no violations"
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("%d structural violation(s):\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// Unwrap exposes every violation's underlying sentinel error, so
// errors.Is(verr, ErrUnconnectedPort) finds a match anywhere in the batch
// instead of only at the top level.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v.Err
	}
	return errs
}

func (e *ValidationError) add(err error, child, port, hint string) {
	e.Violations = append(e.Violations, Violation{Child: child, Port: port, Err: err, Hint: hint})
}

func (e *ValidationError) errOrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

// ExecError is returned by Execute and RunPlan when one or more workers fail
// or one or more shutdown hooks fail. Primary worker failures are always
// reported; secondary shutdown failures never mask them but are reported
// even when no worker failed.
type ExecError struct {
	Primary   *multierror.Error
	Secondary *multierror.Error
}

func (e *ExecError) Error() string {
	sb := &strings.Builder{}
	if e.Primary != nil && len(e.Primary.Errors) > 0 {
		fmt.Fprintf(sb, "%d worker(s) failed: %s", len(e.Primary.Errors), e.Primary.Error())
	}
	if e.Secondary != nil && len(e.Secondary.Errors) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(sb, "%d shutdown error(s): %s", len(e.Secondary.Errors), e.Secondary.Error())
	}
	return sb.String()
}

// hasFailures reports whether either bucket holds an error.
func (e *ExecError) hasFailures() bool {
	return (e.Primary != nil && len(e.Primary.Errors) > 0) ||
		(e.Secondary != nil && len(e.Secondary.Errors) > 0)
}
