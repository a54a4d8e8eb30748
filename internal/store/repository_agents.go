package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

func splitGames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinGames(games []string) string { return strings.Join(games, ",") }

func (s *Store) scanAgent(row *sql.Row) (*Agent, error) {
	var a Agent
	var games string
	err := row.Scan(&a.ID, &a.Name, &a.APIKeyHash, &a.UseLocalBalance, &games, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.AllowedGames = splitGames(games)
	return &a, nil
}

const agentColumns = `id, name, api_key_hash, use_local_balance, allowed_games, status, created_at`

func (s *Store) GetAgentByAPIKey(ctx context.Context, apiKey string) (*Agent, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE api_key_hash = $1`, HashAPIKey(apiKey))
	return s.scanAgent(row)
}

func (s *Store) GetAgentByID(ctx context.Context, id string) (*Agent, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return s.scanAgent(row)
}

func (s *Store) CreateAgent(ctx context.Context, name, apiKey string, useLocalBalance bool, allowedGames []string) (string, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO agents (id, name, api_key_hash, use_local_balance, allowed_games) VALUES ($1,$2,$3,$4,$5)`,
		id, name, HashAPIKey(apiKey), useLocalBalance, joinGames(allowedGames))
	if isUniqueViolation(err) {
		return "", ErrDuplicate
	}
	return id, err
}

const operatorColumns = `id, name, api_key_hash, api_secret_hash, balance_url, debit_url, credit_url, webhook_secret, status, created_at`

func (s *Store) scanOperator(row *sql.Row) (*Operator, error) {
	var o Operator
	err := row.Scan(&o.ID, &o.Name, &o.APIKeyHash, &o.APISecretHash,
		&o.BalanceURL, &o.DebitURL, &o.CreditURL, &o.WebhookSecret, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) GetOperatorByAPIKey(ctx context.Context, apiKey string) (*Operator, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE api_key_hash = $1`, HashAPIKey(apiKey))
	return s.scanOperator(row)
}

func (s *Store) GetOperatorByID(ctx context.Context, id string) (*Operator, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id)
	return s.scanOperator(row)
}

func (s *Store) CreateOperator(ctx context.Context, op *Operator) (string, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO operators (id, name, api_key_hash, api_secret_hash, balance_url, debit_url, credit_url, webhook_secret)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, op.Name, op.APIKeyHash, op.APISecretHash, op.BalanceURL, op.DebitURL, op.CreditURL, op.WebhookSecret)
	if isUniqueViolation(err) {
		return "", ErrDuplicate
	}
	return id, err
}
