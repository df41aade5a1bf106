package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock doctor repository --

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
	// busy marks doctors that still have appointments on file.
	busy map[uuid.UUID]bool
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{
		doctors: make(map[uuid.UUID]*Doctor),
		busy:    make(map[uuid.UUID]bool),
	}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	stored, ok := m.doctors[d.ID]
	if !ok {
		return ErrNotFound
	}
	d.CreatedAt = stored.CreatedAt
	d.UpdatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	if m.busy[id] {
		return ErrDoctorInUse
	}
	if _, ok := m.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(m.doctors, id)
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		if f.Active != nil && d.Active != *f.Active {
			continue
		}
		if f.Specialty != "" {
			if d.Specialty == nil || !strings.Contains(strings.ToLower(*d.Specialty), strings.ToLower(f.Specialty)) {
				continue
			}
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, len(result), nil
}

// -- Mock client repository --

type mockClientRepo struct {
	clients map[uuid.UUID]*Client
}

func newMockClientRepo() *mockClientRepo {
	return &mockClientRepo{clients: make(map[uuid.UUID]*Client)}
}

func (m *mockClientRepo) Create(_ context.Context, cl *Client) error {
	for _, other := range m.clients {
		if other.NationalID == cl.NationalID {
			return ErrDuplicateNationalID
		}
	}
	cl.ID = uuid.New()
	cl.CreatedAt = time.Now()
	cl.UpdatedAt = time.Now()
	m.clients[cl.ID] = cl
	return nil
}

func (m *mockClientRepo) GetByID(_ context.Context, id uuid.UUID) (*Client, error) {
	cl, ok := m.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cl, nil
}

func (m *mockClientRepo) Update(_ context.Context, cl *Client) error {
	stored, ok := m.clients[cl.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.clients {
		if id != cl.ID && other.NationalID == cl.NationalID {
			return ErrDuplicateNationalID
		}
	}
	cl.CreatedAt = stored.CreatedAt
	cl.UpdatedAt = time.Now()
	m.clients[cl.ID] = cl
	return nil
}

func (m *mockClientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.clients[id]; !ok {
		return ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *mockClientRepo) List(_ context.Context, limit, offset int) ([]*Client, int, error) {
	var result []*Client
	for _, cl := range m.clients {
		result = append(result, cl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, len(result), nil
}

func (m *mockClientRepo) Search(_ context.Context, q string, limit, offset int) ([]*Client, int, error) {
	var result []*Client
	for _, cl := range m.clients {
		if strings.Contains(strings.ToLower(cl.Name), strings.ToLower(q)) || cl.NationalID == q {
			result = append(result, cl)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, len(result), nil
}

func (m *mockClientRepo) SetNeedsAttention(_ context.Context, id uuid.UUID, flag bool) error {
	cl, ok := m.clients[id]
	if !ok {
		return ErrNotFound
	}
	cl.NeedsAttention = flag
	cl.UpdatedAt = time.Now()
	return nil
}

// -- Tests --

func newTestService() *Service {
	return NewService(newMockDoctorRepo(), newMockClientRepo())
}

func TestCreateDoctor(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Alice Moreira"}
	err := svc.CreateDoctor(context.Background(), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if !d.Active {
		t.Error("expected active to be true")
	}
	if d.WorkStart != "08:00" || d.WorkEnd != "17:00" {
		t.Errorf("expected default workday 08:00-17:00, got %s-%s", d.WorkStart, d.WorkEnd)
	}
}

func TestCreateDoctor_NameRequired(t *testing.T) {
	svc := newTestService()

	err := svc.CreateDoctor(context.Background(), &Doctor{})
	if err == nil {
		t.Error("expected error for missing name")
	}
}

func TestCreateDoctor_KeepsGivenHours(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Bruno Dias", WorkStart: "10:30", WorkEnd: "19:00"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.WorkStart != "10:30" || d.WorkEnd != "19:00" {
		t.Errorf("expected 10:30-19:00, got %s-%s", d.WorkStart, d.WorkEnd)
	}
}

func TestCreateDoctor_HoursMustBeWallClock(t *testing.T) {
	svc := newTestService()

	for _, bad := range []string{"25:00", "09:99", "9am", "0900"} {
		d := &Doctor{Name: "Dr. Bad Hours", WorkStart: bad, WorkEnd: "17:00"}
		if err := svc.CreateDoctor(context.Background(), d); err == nil {
			t.Errorf("expected error for work_start %q", bad)
		}
	}
}

func TestCreateDoctor_WorkdayOrder(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Night Shift", WorkStart: "18:00", WorkEnd: "09:00"}
	if err := svc.CreateDoctor(context.Background(), d); err == nil {
		t.Error("expected error when work_start is after work_end")
	}

	d2 := &Doctor{Name: "Dr. Zero Day", WorkStart: "09:00", WorkEnd: "09:00"}
	if err := svc.CreateDoctor(context.Background(), d2); err == nil {
		t.Error("expected error when work_start equals work_end")
	}
}

func TestGetDoctor(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Carla Nunes"}
	svc.CreateDoctor(context.Background(), d)

	fetched, err := svc.GetDoctor(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.Name != "Dr. Carla Nunes" {
		t.Errorf("expected Dr. Carla Nunes, got %s", fetched.Name)
	}
}

func TestGetDoctor_NotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.GetDoctor(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDoctor(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Old Name"}
	svc.CreateDoctor(context.Background(), d)

	d.Name = "Dr. New Name"
	d.Active = false
	if err := svc.UpdateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetched, _ := svc.GetDoctor(context.Background(), d.ID)
	if fetched.Name != "Dr. New Name" {
		t.Errorf("expected Dr. New Name, got %s", fetched.Name)
	}
	if fetched.Active {
		t.Error("expected doctor to be inactive after update")
	}
}

func TestUpdateDoctor_NotFound(t *testing.T) {
	svc := newTestService()

	d := &Doctor{ID: uuid.New(), Name: "Dr. Ghost", WorkStart: "08:00", WorkEnd: "17:00"}
	if err := svc.UpdateDoctor(context.Background(), d); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDoctor_NameRequired(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Erasable"}
	svc.CreateDoctor(context.Background(), d)

	d.Name = ""
	if err := svc.UpdateDoctor(context.Background(), d); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestDeleteDoctor(t *testing.T) {
	svc := newTestService()

	d := &Doctor{Name: "Dr. Leaving"}
	svc.CreateDoctor(context.Background(), d)

	if err := svc.DeleteDoctor(context.Background(), d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetDoctor(context.Background(), d.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected doctor to be gone after deletion")
	}
}

func TestDeleteDoctor_NotFound(t *testing.T) {
	svc := newTestService()

	if err := svc.DeleteDoctor(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDoctor_InUse(t *testing.T) {
	doctors := newMockDoctorRepo()
	svc := NewService(doctors, newMockClientRepo())

	d := &Doctor{Name: "Dr. Booked Solid"}
	svc.CreateDoctor(context.Background(), d)
	doctors.busy[d.ID] = true

	if err := svc.DeleteDoctor(context.Background(), d.ID); !errors.Is(err, ErrDoctorInUse) {
		t.Errorf("expected ErrDoctorInUse, got %v", err)
	}
}

func TestListDoctors_ActiveFilter(t *testing.T) {
	svc := newTestService()

	active := &Doctor{Name: "Dr. Active"}
	svc.CreateDoctor(context.Background(), active)
	retired := &Doctor{Name: "Dr. Retired"}
	svc.CreateDoctor(context.Background(), retired)
	retired.Active = false
	svc.UpdateDoctor(context.Background(), retired)

	want := true
	docs, total, err := svc.ListDoctors(context.Background(), DoctorFilter{Active: &want}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(docs) != 1 {
		t.Fatalf("expected 1 active doctor, got %d", total)
	}
	if docs[0].ID != active.ID {
		t.Error("expected the active doctor")
	}
}

func TestListDoctors_SpecialtyFilter(t *testing.T) {
	svc := newTestService()

	cardio := "Cardiology"
	derm := "Dermatology"
	svc.CreateDoctor(context.Background(), &Doctor{Name: "Dr. Heart", Specialty: &cardio})
	svc.CreateDoctor(context.Background(), &Doctor{Name: "Dr. Skin", Specialty: &derm})
	svc.CreateDoctor(context.Background(), &Doctor{Name: "Dr. Plain"})

	docs, total, err := svc.ListDoctors(context.Background(), DoctorFilter{Specialty: "cardio"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(docs) != 1 {
		t.Fatalf("expected 1 cardiologist, got %d", total)
	}
	if docs[0].Name != "Dr. Heart" {
		t.Errorf("expected Dr. Heart, got %s", docs[0].Name)
	}
}

func TestCreateClient(t *testing.T) {
	svc := newTestService()

	cl := &Client{Name: "Ana Souza", Phone: "+55 11 91234-0000", NationalID: "12345678900"}
	err := svc.CreateClient(context.Background(), cl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cl.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if !cl.Active {
		t.Error("expected active to be true")
	}
	if cl.NeedsAttention {
		t.Error("expected needs_attention to default to false")
	}
}

func TestCreateClient_NameRequired(t *testing.T) {
	svc := newTestService()

	err := svc.CreateClient(context.Background(), &Client{NationalID: "12345678900"})
	if err == nil {
		t.Error("expected error for missing name")
	}
}

func TestCreateClient_NationalIDRequired(t *testing.T) {
	svc := newTestService()

	err := svc.CreateClient(context.Background(), &Client{Name: "Ana Souza"})
	if err == nil {
		t.Error("expected error for missing national_id")
	}
}

func TestCreateClient_DuplicateNationalID(t *testing.T) {
	svc := newTestService()

	first := &Client{Name: "Ana Souza", NationalID: "12345678900"}
	if err := svc.CreateClient(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := &Client{Name: "Ana S. Souza", NationalID: "12345678900"}
	if err := svc.CreateClient(context.Background(), dup); !errors.Is(err, ErrDuplicateNationalID) {
		t.Errorf("expected ErrDuplicateNationalID, got %v", err)
	}
}

func TestGetClient_NotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.GetClient(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateClient(t *testing.T) {
	svc := newTestService()

	cl := &Client{Name: "Bruno Lima", NationalID: "98765432100"}
	svc.CreateClient(context.Background(), cl)

	cl.Phone = "+55 11 95555-1234"
	if err := svc.UpdateClient(context.Background(), cl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetched, _ := svc.GetClient(context.Background(), cl.ID)
	if fetched.Phone != "+55 11 95555-1234" {
		t.Errorf("expected updated phone, got %s", fetched.Phone)
	}
}

func TestUpdateClient_DuplicateNationalID(t *testing.T) {
	svc := newTestService()

	first := &Client{Name: "Ana Souza", NationalID: "11111111111"}
	svc.CreateClient(context.Background(), first)
	second := &Client{Name: "Bruno Lima", NationalID: "22222222222"}
	svc.CreateClient(context.Background(), second)

	second.NationalID = "11111111111"
	if err := svc.UpdateClient(context.Background(), second); !errors.Is(err, ErrDuplicateNationalID) {
		t.Errorf("expected ErrDuplicateNationalID, got %v", err)
	}
}

func TestUpdateClient_NotFound(t *testing.T) {
	svc := newTestService()

	cl := &Client{ID: uuid.New(), Name: "Ghost", NationalID: "00000000000"}
	if err := svc.UpdateClient(context.Background(), cl); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteClient(t *testing.T) {
	svc := newTestService()

	cl := &Client{Name: "Carla Dias", NationalID: "33333333333"}
	svc.CreateClient(context.Background(), cl)

	if err := svc.DeleteClient(context.Background(), cl.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetClient(context.Background(), cl.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected client to be gone after deletion")
	}
}

func TestDeleteClient_NotFound(t *testing.T) {
	svc := newTestService()

	if err := svc.DeleteClient(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListClients(t *testing.T) {
	svc := newTestService()

	svc.CreateClient(context.Background(), &Client{Name: "Zeca Prado", NationalID: "44444444444"})
	svc.CreateClient(context.Background(), &Client{Name: "Ana Souza", NationalID: "55555555555"})

	clients, total, err := svc.ListClients(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", total)
	}
	if clients[0].Name != "Ana Souza" {
		t.Errorf("expected clients ordered by name, got %s first", clients[0].Name)
	}
}

func TestSearchClients_ByName(t *testing.T) {
	svc := newTestService()

	svc.CreateClient(context.Background(), &Client{Name: "Ana Souza", NationalID: "66666666666"})
	svc.CreateClient(context.Background(), &Client{Name: "Mariana Costa", NationalID: "77777777777"})
	svc.CreateClient(context.Background(), &Client{Name: "Bruno Lima", NationalID: "88888888888"})

	clients, total, err := svc.SearchClients(context.Background(), "ana", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(clients) != 2 {
		t.Fatalf("expected 2 matches for 'ana', got %d", total)
	}
}

func TestSearchClients_ByNationalID(t *testing.T) {
	svc := newTestService()

	target := &Client{Name: "Ana Souza", NationalID: "12345678900"}
	svc.CreateClient(context.Background(), target)
	svc.CreateClient(context.Background(), &Client{Name: "Bruno Lima", NationalID: "98765432100"})

	clients, total, err := svc.SearchClients(context.Background(), "12345678900", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(clients) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", total)
	}
	if clients[0].ID != target.ID {
		t.Error("expected the client with the matching national id")
	}
}

func TestSetClientAttention(t *testing.T) {
	svc := newTestService()

	cl := &Client{Name: "Ana Souza", NationalID: "12312312300"}
	svc.CreateClient(context.Background(), cl)

	if err := svc.SetClientAttention(context.Background(), cl.ID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetched, _ := svc.GetClient(context.Background(), cl.ID)
	if !fetched.NeedsAttention {
		t.Error("expected needs_attention to be set")
	}

	if err := svc.SetClientAttention(context.Background(), cl.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetched, _ = svc.GetClient(context.Background(), cl.ID)
	if fetched.NeedsAttention {
		t.Error("expected needs_attention to be cleared")
	}
}

func TestSetClientAttention_NotFound(t *testing.T) {
	svc := newTestService()

	if err := svc.SetClientAttention(context.Background(), uuid.New(), true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
