/*
Package switchboard is the state engine behind a control-surface controller: it resolves indirected references, keeps per-surface page history and narrows variable changes down to the outputs that depend on them.

Commands and feedbacks placed on buttons may name their target page, bank or surface literally, through a placeholder ("this page", "this surface") or through a variable. The engine turns those fields into concrete ids, validates them against the host's current choice sets and refuses to act on anything that does not resolve.

# Key Features

  - Reference resolution: literal, placeholder and variable-driven fields, one warning per failure.
  - Navigation history: browser-style back/forward per surface, capped at 100 entries, with page assignment deferred until the current operation completes.
  - Subscription index: variable changes trigger only the feedbacks that read them.
  - Display cache: merged button styles with self-referencing text replaced by "$RE".
  - Hexagonal Architecture: the host (variables, surfaces, buttons, feedback engine) is reached only through ports.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/switchboard"
		"github.com/aretw0/switchboard/pkg/adapters/memory"
		"github.com/aretw0/switchboard/pkg/domain"
	)

	func main() {
		host := memory.NewHost(memory.HostConfig{
			Pages:    99,
			Banks:    32,
			Surfaces: []domain.SurfaceID{"SN123"},
		})
		eng := switchboard.New(switchboard.WithHost(host))

		ctx := context.Background()
		err := eng.Dispatch(ctx, domain.Command{
			Kind:    domain.CommandSetPage,
			Options: map[string]any{"controller": "self", "page": 5},
			Extras:  &domain.ContextExtras{Page: "1", Bank: "3", DeviceID: "SN123"},
		})
		if err != nil {
			log.Fatal(err)
		}

		// Assign the pages decided above.
		if err := eng.Drain(ctx); err != nil {
			log.Fatal(err)
		}
	}
*/
package switchboard
