// README: Common value types shared across modules.
package types

// ID identifies rides, drivers, and organizations. Opaque string, unique per org.
type ID string
