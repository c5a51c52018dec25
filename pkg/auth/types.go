package auth

import (
	"fmt"
	"sort"
	"sync"
)

// Credentials is the username/password pair used against the identity
// provider. It is held in memory only for the duration of a login attempt
// and is never cached or serialized.
type Credentials struct {
	Username string
	Password string
}

// String redacts the password so accidental logging never leaks it.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{username: %s}", c.Username)
}

// GoString redacts the password for %#v as well.
func (c Credentials) GoString() string { return c.String() }

// Service identifies one of the DSV systems behind the SSO gateway.
type Service string

const (
	ServiceDaisyStaff         Service = "daisy-staff"
	ServiceDaisyStudent       Service = "daisy-student"
	ServiceHandledning        Service = "handledning"
	ServiceHandledningMobile  Service = "handledning-mobile"
	ServiceACTLab             Service = "actlab"
	ServiceClickMap           Service = "clickmap"
)

// Descriptor describes how to authenticate against one service: the
// protected entry URL that triggers the SSO redirect chain, a cheap page to
// probe session validity against, the base URL for downstream requests, and
// the content probe itself.
type Descriptor struct {
	ID       Service
	EntryURL string
	ProbeURL string
	BaseURL  string
	Probe    Probe
}

// Registry maps service identifiers to their descriptors. Populated at
// construction time; safe for concurrent lookups. Probe markers may be
// replaced at runtime via SetProbe (see pkg/config).
type Registry struct {
	mu       sync.RWMutex
	services map[Service]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[Service]*Descriptor)}
}

// DefaultRegistry returns a registry with the production DSV services.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	daisyProbe := MarkerProbe(
		[]string{"logga ut", "logout"},
		[]string{"j_username", "logga in för att fortsätta"},
	)

	reg.Register(&Descriptor{
		ID:       ServiceDaisyStaff,
		EntryURL: "https://daisy.dsv.su.se/login_sso_employee.jspa",
		ProbeURL: "https://daisy.dsv.su.se/index.jspa",
		BaseURL:  "https://daisy.dsv.su.se",
		Probe:    daisyProbe,
	})
	reg.Register(&Descriptor{
		ID:       ServiceDaisyStudent,
		EntryURL: "https://daisy.dsv.su.se/login_sso_student.jspa",
		ProbeURL: "https://daisy.dsv.su.se/index.jspa",
		BaseURL:  "https://daisy.dsv.su.se",
		Probe:    daisyProbe,
	})
	reg.Register(&Descriptor{
		ID:       ServiceHandledning,
		EntryURL: "https://handledning.dsv.su.se",
		ProbeURL: "https://handledning.dsv.su.se",
		BaseURL:  "https://handledning.dsv.su.se",
		Probe:    MarkerProbe([]string{"logout", "logga ut"}, []string{"j_username"}),
	})
	reg.Register(&Descriptor{
		ID:       ServiceHandledningMobile,
		EntryURL: "https://handledning.dsv.su.se",
		ProbeURL: "https://handledning.dsv.su.se",
		BaseURL:  "https://handledning.dsv.su.se/mobile",
		Probe:    MarkerProbe([]string{"logout", "logga ut"}, []string{"j_username"}),
	})
	reg.Register(&Descriptor{
		ID:       ServiceACTLab,
		EntryURL: "https://www2.dsv.su.se/act-lab/admin/",
		ProbeURL: "https://www2.dsv.su.se/act-lab/admin/",
		BaseURL:  "https://www2.dsv.su.se/act-lab/admin",
		Probe:    MarkerProbe([]string{"class=\"slide\"", "upload"}, []string{"j_username"}),
	})
	reg.Register(&Descriptor{
		ID:       ServiceClickMap,
		EntryURL: "https://clickmap.dsv.su.se/",
		ProbeURL: "https://clickmap.dsv.su.se/api/points",
		BaseURL:  "https://clickmap.dsv.su.se",
		Probe:    MarkerProbe(nil, []string{"j_username", "<form"}),
	})

	return reg
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	r.services[d.ID] = d
	r.mu.Unlock()
}

// Lookup returns the descriptor for a service.
func (r *Registry) Lookup(id Service) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("unknown service: %s", id)
	}
	return d, nil
}

// SetProbe replaces a service's probe. Marker text is configuration data;
// this is the hook pkg/config uses when markers are reloaded.
func (r *Registry) SetProbe(id Service, probe Probe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.services[id]
	if !ok {
		return fmt.Errorf("unknown service: %s", id)
	}
	d.Probe = probe
	return nil
}

// Services lists registered service identifiers in sorted order.
func (r *Registry) Services() []Service {
	r.mu.RLock()
	ids := make([]Service, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
