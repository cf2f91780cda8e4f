// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging, CORS); AppConfig is everything specific to FeleHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// Audit logging configuration
	AuditLogAuth     string // Auth event logging: "all" (db+log), "db", "log", or "off"
	AuditLogRegistry string // Registry mutation logging: "all" (db+log), "db", "log", or "off"
}
