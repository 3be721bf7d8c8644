package bootstrap

import (
	"context"
	"database/sql"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/ngc-omeka/omeka-dist/pkg/config"
	"github.com/ngc-omeka/omeka-dist/pkg/errors"
)

// CheckDatabase connects with the credentials Omeka S will use and pings
// the server
func CheckDatabase(ctx context.Context, db config.DBConfig) error {
	db = db.WithDefaults()

	cfg := mysql.NewConfig()
	cfg.User = db.Username
	cfg.Passwd = db.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(db.Host, db.Port)
	cfg.DBName = db.Database

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabase, "invalid database configuration")
	}
	conn := sql.OpenDB(connector)
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return errors.Wrapf(err, errors.ErrDatabase, "cannot reach database %s at %s", db.Database, cfg.Addr)
	}
	return nil
}
