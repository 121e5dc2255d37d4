// Package data holds the client-side state primitives shared by the
// controllers: generation-guarded fetch pools, realms that scope their
// lifetime, and rollback snapshots for optimistic edits.
package data

// Msg is the result of running a Cmd. Controllers return Cmds for any
// blocking work so the owner decides where and when it runs.
type Msg any

// Cmd performs blocking I/O and reports its outcome as a Msg.
// A nil Cmd means there is nothing to do.
type Cmd func() Msg

// Run executes cmd if it is non-nil and returns its Msg.
func Run(cmd Cmd) Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// Batch combines cmds into one that runs them in order and returns the
// Msg of the last non-nil result.
func Batch(cmds ...Cmd) Cmd {
	var live []Cmd
	for _, c := range cmds {
		if c != nil {
			live = append(live, c)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func() Msg {
		var last Msg
		for _, c := range live {
			if m := c(); m != nil {
				last = m
			}
		}
		return last
	}
}
