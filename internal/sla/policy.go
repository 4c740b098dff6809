// Package sla maps ticket priorities to resolution deadlines.
package sla

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// Policy is the single offset table used for every due-date calculation.
// Unknown priorities are rejected rather than defaulted.
type Policy struct {
	offsets map[domain.TicketPriority]time.Duration
}

// DefaultOffsets is the table used when no policy file is configured.
func DefaultOffsets() map[domain.TicketPriority]time.Duration {
	return map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityCritical: 4 * time.Hour,
		domain.TicketPriorityHigh:     12 * time.Hour,
		domain.TicketPriorityMedium:   24 * time.Hour,
		domain.TicketPriorityLow:      72 * time.Hour,
	}
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *Policy {
	return &Policy{offsets: DefaultOffsets()}
}

// NewPolicy validates that every known priority has a positive offset.
func NewPolicy(offsets map[domain.TicketPriority]time.Duration) (*Policy, error) {
	table := make(map[domain.TicketPriority]time.Duration, len(offsets))
	for priority, offset := range offsets {
		if !priority.Valid() {
			return nil, apperrors.NewInvalidPriority(string(priority))
		}
		if offset <= 0 {
			return nil, fmt.Errorf("sla offset for %s must be positive, got %s", priority, offset)
		}
		table[priority] = offset
	}
	for _, priority := range domain.TicketPriorities {
		if _, ok := table[priority]; !ok {
			return nil, fmt.Errorf("sla offset for %s missing", priority)
		}
	}
	return &Policy{offsets: table}, nil
}

// Due returns createdAt plus the offset configured for priority.
func (p *Policy) Due(priority domain.TicketPriority, createdAt time.Time) (time.Time, error) {
	offset, err := p.Offset(priority)
	if err != nil {
		return time.Time{}, err
	}
	return createdAt.Add(offset), nil
}

// Offset returns the configured duration for priority.
func (p *Policy) Offset(priority domain.TicketPriority) (time.Duration, error) {
	offset, ok := p.offsets[priority]
	if !ok {
		return 0, apperrors.NewInvalidPriority(string(priority))
	}
	return offset, nil
}

// Offsets returns a copy of the table.
func (p *Policy) Offsets() map[domain.TicketPriority]time.Duration {
	out := make(map[domain.TicketPriority]time.Duration, len(p.offsets))
	for k, v := range p.offsets {
		out[k] = v
	}
	return out
}

// policyFile is the YAML shape of a policy file:
//
//	critical: 4h
//	high: 12h
//	medium: 24h
//	low: 72h
type policyFile struct {
	Critical string `yaml:"critical"`
	High     string `yaml:"high"`
	Medium   string `yaml:"medium"`
	Low      string `yaml:"low"`
}

// LoadPolicyFile reads a policy from YAML. An empty path yields the default policy.
func LoadPolicyFile(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes YAML policy bytes. A file may override any subset of
// priorities; omitted priorities keep their default offset. Keys that are not
// a priority name are rejected.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode sla policy: %w", err)
	}
	offsets := DefaultOffsets()
	entries := []struct {
		priority domain.TicketPriority
		raw      string
	}{
		{domain.TicketPriorityCritical, file.Critical},
		{domain.TicketPriorityHigh, file.High},
		{domain.TicketPriorityMedium, file.Medium},
		{domain.TicketPriorityLow, file.Low},
	}
	for _, entry := range entries {
		if entry.raw == "" {
			continue
		}
		d, err := time.ParseDuration(entry.raw)
		if err != nil {
			return nil, fmt.Errorf("sla offset for %s: %w", entry.priority, err)
		}
		offsets[entry.priority] = d
	}
	return NewPolicy(offsets)
}
