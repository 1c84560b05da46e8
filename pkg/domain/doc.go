/*
Package domain contains the core domain models for the Switchboard engine.

It defines the identifiers and value types shared by every other package:
surfaces, pages, banks, variable references, navigation history and the
command/feedback vocabulary. The package is kept pure and free of I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - History: the bounded back/forward page stack of one control surface.
  - FieldReference: a page, bank or controller field that may be literal,
    a "current context" placeholder or an indirection through a variable.
  - VariableRef: a structured namespace/name reference to an external value.
  - Style: a host-owned button style record, only ever held as a deep copy.
  - Command / Feedback: the closed enumerations the dispatcher understands.
*/
package domain
