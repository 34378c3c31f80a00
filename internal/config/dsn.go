package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DSNValue builds a go-sql-driver MySQL DSN from the database section,
// falling back to development defaults for anything unset.
func (c DatabaseConfig) DSNValue() string {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = defaultDBUser
	}
	password := c.Password
	if password == "" {
		password = defaultDBPassword
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=True&loc=%s",
		user, password, addr, name, charset, loc)
}
