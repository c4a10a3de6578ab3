package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/grcplane/grcplane-core/internal/config"
)

// Client owns the MySQL connection pool shared by the alert, rule and
// escalation stores.
type Client struct {
	DB *sql.DB
}

func dsnFrom(cfg config.MySQLConfig) string {
	user := cfg.User
	if user == "" {
		user = "root"
	}
	pass := cfg.Password
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = "grcplane"
	}

	params := url.Values{}
	params.Set("parseTime", "true")
	if cfg.TLS {
		params.Set("tls", "preferred")
	}
	for k, v := range cfg.Params {
		params.Set(k, v)
	}
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", auth, host, port, dbName, params.Encode())
}

func Connect(cfg config.MySQLConfig) (*Client, error) {
	dsn := dsnFrom(cfg)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	c := &Client{DB: db}
	if err := c.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error { return c.DB.Close() }

func (c *Client) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id VARCHAR(64) NOT NULL,
			title VARCHAR(512) NOT NULL,
			description TEXT,
			type VARCHAR(64) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			related_entity_id VARCHAR(128),
			related_entity_type VARCHAR(128),
			metadata JSON,
			escalation_chain_id VARCHAR(64),
			has_escalation TINYINT(1) DEFAULT 0,
			tenant_id VARCHAR(128),
			created_by VARCHAR(128),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			acknowledged_at TIMESTAMP NULL,
			acknowledged_by VARCHAR(128),
			resolved_at TIMESTAMP NULL,
			resolved_by VARCHAR(128),
			resolution_notes TEXT,
			PRIMARY KEY (id),
			KEY idx_alerts_entity (related_entity_id, related_entity_type, type, status),
			KEY idx_alerts_status (status, updated_at)
		)`,
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			is_active TINYINT(1) DEFAULT 1,
			trigger_type VARCHAR(32) NOT NULL,
			entity_type VARCHAR(128) NOT NULL,
			field_name VARCHAR(128),
			` + "`condition`" + ` VARCHAR(32),
			condition_value TEXT,
			threshold_value DOUBLE NULL,
			severity_score INT DEFAULT 1,
			alert_message TEXT,
			filters JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_rules_entity_type (entity_type, is_active)
		)`,
		`CREATE TABLE IF NOT EXISTS escalation_chains (
			id VARCHAR(64) NOT NULL,
			alert_id VARCHAR(64) NOT NULL,
			alert_rule_id VARCHAR(64),
			status VARCHAR(16) NOT NULL,
			current_level INT DEFAULT 0,
			max_levels INT NOT NULL,
			escalation_rules JSON NOT NULL,
			next_escalation_at TIMESTAMP NULL,
			escalation_history JSON,
			workflow_execution_id VARCHAR(128),
			notes TEXT,
			resolved_by VARCHAR(128),
			resolved_at TIMESTAMP NULL,
			created_by VARCHAR(128),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_chains_alert (alert_id, created_at),
			KEY idx_chains_status (status, next_escalation_at)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) NOT NULL,
			email VARCHAR(255),
			display_name VARCHAR(255),
			roles JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		)`,
	}
	for _, s := range stmts {
		if _, err := c.DB.Exec(s); err != nil {
			return fmt.Errorf("ensure schema failed: %s: %w", strings.SplitN(s, "(", 2)[0], err)
		}
	}
	return nil
}
