/*
Package ports defines the driven ports (interfaces) for the Switchboard engine.

These interfaces replace the host's global event bus: every query the engine
needs is a direct synchronous call on an injected collaborator, and every
effect it produces goes through an explicit method. Implementations may be
backed by the same event loop that invokes the engine, so the engine never
keeps references into its own state across a call to any of them.

# Key Interfaces

  - VariableStore / VariableSink: read, expand and publish named values.
  - FeedbackEngine: recompute computed outputs by id or by type.
  - PageAssignment: query and set the page a surface shows.
  - ChoiceSets: the valid pages, banks and controllers used for validation.
  - BankStore / StyleOverrides: base button records and feedback overrides.
  - HistoryStore / DistributedLocker: persistence and coordination of
    per-surface navigation history.
*/
package ports
