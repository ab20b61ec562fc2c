package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// RegistryStore persists metagraph entries across registry restarts.
type RegistryStore interface {
	SaveNeuron(neuron *RegisteredNeuron) error
	UpdateStake(hotkey string, stake uint64) error
	DeleteNeuron(hotkey string) error
	LoadAllNeurons() (map[NeuronType]map[string]*RegisteredNeuron, error)
}

// PostgresStore implements RegistryStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS registered_neurons (
		hotkey VARCHAR(128) PRIMARY KEY,
		neuron_type VARCHAR(32) NOT NULL,
		http_endpoint VARCHAR(512) NOT NULL,
		stake BIGINT NOT NULL DEFAULT 0,
		attestation BYTEA,
		signature BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_neurons_type ON registered_neurons(neuron_type);
	CREATE INDEX IF NOT EXISTS idx_neurons_created ON registered_neurons(created_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveNeuron persists a metagraph entry. Re-registration updates the
// endpoint and attestation but keeps the assigned stake.
func (s *PostgresStore) SaveNeuron(neuron *RegisteredNeuron) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO registered_neurons
		(hotkey, neuron_type, http_endpoint, stake, attestation, signature, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (hotkey) DO UPDATE SET
		neuron_type = EXCLUDED.neuron_type,
		http_endpoint = EXCLUDED.http_endpoint,
		attestation = EXCLUDED.attestation,
		signature = EXCLUDED.signature,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		neuron.Hotkey,
		string(neuron.NeuronType),
		neuron.HTTPEndpoint,
		int64(neuron.Stake),
		neuron.Attestation,
		neuron.Signature,
	)
	return err
}

// UpdateStake sets a neuron's stake.
func (s *PostgresStore) UpdateStake(hotkey string, stake uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"UPDATE registered_neurons SET stake = $1, updated_at = NOW() WHERE hotkey = $2",
		int64(stake), hotkey)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("hotkey %s not registered", hotkey)
	}
	return nil
}

// DeleteNeuron removes a metagraph entry.
func (s *PostgresStore) DeleteNeuron(hotkey string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM registered_neurons WHERE hotkey = $1", hotkey)
	return err
}

// LoadAllNeurons retrieves all persisted metagraph entries.
func (s *PostgresStore) LoadAllNeurons() (map[NeuronType]map[string]*RegisteredNeuron, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT hotkey, neuron_type, http_endpoint, stake, attestation, signature
		FROM registered_neurons
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := emptyMetagraph()

	for rows.Next() {
		var (
			neuron RegisteredNeuron
			nType  string
			stake  int64
		)
		if err := rows.Scan(&neuron.Hotkey, &nType, &neuron.HTTPEndpoint, &stake, &neuron.Attestation, &neuron.Signature); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		neuron.NeuronType = NeuronType(nType)
		if !neuron.NeuronType.Valid() {
			continue
		}
		neuron.Stake = uint64(stake)

		result[neuron.NeuronType][neuron.Hotkey] = &neuron
	}

	return result, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func emptyMetagraph() map[NeuronType]map[string]*RegisteredNeuron {
	return map[NeuronType]map[string]*RegisteredNeuron{
		MinerNeuron:     make(map[string]*RegisteredNeuron),
		ValidatorNeuron: make(map[string]*RegisteredNeuron),
	}
}

// InMemoryStore implements RegistryStore for tests and single-process
// deployments without a database.
type InMemoryStore struct {
	mu      sync.Mutex
	neurons map[string]*RegisteredNeuron
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		neurons: make(map[string]*RegisteredNeuron),
	}
}

// SaveNeuron stores a metagraph entry in memory.
func (s *InMemoryStore) SaveNeuron(neuron *RegisteredNeuron) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *neuron
	if existing, ok := s.neurons[neuron.Hotkey]; ok {
		copied.Stake = existing.Stake
	}
	s.neurons[neuron.Hotkey] = &copied
	return nil
}

// UpdateStake sets a neuron's stake.
func (s *InMemoryStore) UpdateStake(hotkey string, stake uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	neuron, ok := s.neurons[hotkey]
	if !ok {
		return fmt.Errorf("hotkey %s not registered", hotkey)
	}
	neuron.Stake = stake
	return nil
}

// DeleteNeuron removes a metagraph entry from memory.
func (s *InMemoryStore) DeleteNeuron(hotkey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.neurons, hotkey)
	return nil
}

// LoadAllNeurons returns all stored metagraph entries.
func (s *InMemoryStore) LoadAllNeurons() (map[NeuronType]map[string]*RegisteredNeuron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := emptyMetagraph()
	for hotkey, neuron := range s.neurons {
		copied := *neuron
		result[neuron.NeuronType][hotkey] = &copied
	}
	return result, nil
}
