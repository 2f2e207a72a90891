package audit

import "context"

// Wrap decorates an operation so that exactly one audit event is emitted
// after it runs. Failures are recorded under the action name with a
// "_failed" suffix; the operation's error is returned unchanged.
func (r *Recorder) Wrap(e Entry, op func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := op(ctx)
		r.emitOutcome(ctx, e, err)
		return err
	}
}

// Scope audits an arbitrary block. Call it at the top of a function and
// defer the returned func with a pointer to the named error result:
//
//	defer rec.Scope(ctx, audit.Entry{Action: "export"})(&err)
//
// The event is emitted when the block exits, carrying the final error state.
func (r *Recorder) Scope(ctx context.Context, e Entry) func(errp *error) {
	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		r.emitOutcome(ctx, e, err)
	}
}

func (r *Recorder) emitOutcome(ctx context.Context, e Entry, err error) {
	details := make(map[string]any, len(e.Details)+3)
	for k, v := range e.Details {
		details[k] = v
	}
	if err != nil {
		e.Action += "_failed"
		details["status"] = "error"
		details["message"] = err.Error()
		details["error_type"] = classify(err)
	} else {
		details["status"] = "success"
	}
	e.Details = details
	r.Emit(ctx, e)
}
