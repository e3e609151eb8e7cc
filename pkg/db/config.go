package db

// Pool defaults sized for the receipt pipeline: short bursts of uploads
// against a single database, so a small idle set is enough.
const (
	DefaultMaxIdleConn = 5
	DefaultMaxOpenConn = 25
)

// Config selects the gorm dialector and sizes the connection pool.
// ConnMaxLifetime and ConnMaxIdleTime are in seconds; zero leaves the
// driver default in place.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

func (c Config) withPoolDefaults() Config {
	if c.MaxIdleConn <= 0 {
		c.MaxIdleConn = DefaultMaxIdleConn
	}
	if c.MaxOpenConn <= 0 {
		c.MaxOpenConn = DefaultMaxOpenConn
	}
	return c
}
