// Package flows defines the concrete dialog graphs of the planning bot:
// the event creation wizard, song field editing, chord sheet entry, and
// role renaming. Each flow owns its payload type and token vocabulary and
// commits through the domain stores on its confirmation step.
package flows
