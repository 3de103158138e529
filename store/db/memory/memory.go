// Package memory provides an in-memory store driver used for demo mode and
// tests. The SQL-backed system of record stays behind the same store.Driver
// interface.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/mindmap/store"
)

// Driver is an in-memory implementation of store.Driver.
type Driver struct {
	mu sync.RWMutex

	nextID int32

	users          map[int32]*store.User
	studyRecords   []*store.StudyRecord
	mistakeRecords []*store.MistakeRecord
	knowledgeMaps  map[int32]*store.KnowledgeMap
	conceptNodes   []*store.ConceptNode
	conceptEdges   []*store.ConceptEdge
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		users:         make(map[int32]*store.User),
		knowledgeMaps: make(map[int32]*store.KnowledgeMap),
	}
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) allocateID() int32 {
	d.nextID++
	return d.nextID
}

func (d *Driver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, user := range d.users {
		if user.Username == create.Username {
			return nil, errors.Errorf("username %q already exists", create.Username)
		}
	}

	user := *create
	user.ID = d.allocateID()
	if user.CreatedTs == 0 {
		user.CreatedTs = time.Now().Unix()
	}
	d.users[user.ID] = &user

	copied := user
	return &copied, nil
}

func (d *Driver) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, user := range d.users {
		if find.ID != nil && user.ID != *find.ID {
			continue
		}
		if find.Username != nil && user.Username != *find.Username {
			continue
		}
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (d *Driver) UpdateUserLastLogin(_ context.Context, userID int32, lastLoginTs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[userID]
	if !ok {
		return errors.Errorf("user %d not found", userID)
	}
	user.LastLoginTs = lastLoginTs
	return nil
}

func (d *Driver) CreateStudyRecord(_ context.Context, create *store.StudyRecord) (*store.StudyRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record := *create
	record.ID = d.allocateID()
	if record.CreatedTs == 0 {
		record.CreatedTs = time.Now().Unix()
	}
	d.studyRecords = append(d.studyRecords, &record)

	copied := record
	return &copied, nil
}

func (d *Driver) ListStudyRecords(_ context.Context, find *store.FindStudyRecord) ([]*store.StudyRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var records []*store.StudyRecord
	for _, record := range d.studyRecords {
		if find.UserID != nil && record.UserID != *find.UserID {
			continue
		}
		if find.Subject != nil && record.Subject != *find.Subject {
			continue
		}
		if find.CreatedTsAfter != nil && record.CreatedTs < *find.CreatedTsAfter {
			continue
		}
		if find.CreatedTsBefore != nil && record.CreatedTs > *find.CreatedTsBefore {
			continue
		}
		copied := *record
		records = append(records, &copied)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedTs > records[j].CreatedTs
	})
	if find.Limit != nil && len(records) > *find.Limit {
		records = records[:*find.Limit]
	}
	return records, nil
}

func (d *Driver) CreateMistakeRecord(_ context.Context, create *store.MistakeRecord) (*store.MistakeRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record := *create
	record.ID = d.allocateID()
	if record.CreatedTs == 0 {
		record.CreatedTs = time.Now().Unix()
	}
	d.mistakeRecords = append(d.mistakeRecords, &record)

	copied := record
	return &copied, nil
}

func (d *Driver) ListMistakeRecords(_ context.Context, find *store.FindMistakeRecord) ([]*store.MistakeRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var records []*store.MistakeRecord
	for _, record := range d.mistakeRecords {
		if find.UserID != nil && record.UserID != *find.UserID {
			continue
		}
		if find.Subject != nil && record.Subject != *find.Subject {
			continue
		}
		if find.MistakeType != nil && record.MistakeType != *find.MistakeType {
			continue
		}
		if find.CreatedTsAfter != nil && record.CreatedTs < *find.CreatedTsAfter {
			continue
		}
		copied := *record
		records = append(records, &copied)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedTs > records[j].CreatedTs
	})
	if find.Limit != nil && len(records) > *find.Limit {
		records = records[:*find.Limit]
	}
	return records, nil
}

func (d *Driver) CreateKnowledgeMap(_ context.Context, create *store.KnowledgeMap) (*store.KnowledgeMap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	knowledgeMap := *create
	knowledgeMap.ID = d.allocateID()
	now := time.Now().Unix()
	if knowledgeMap.CreatedTs == 0 {
		knowledgeMap.CreatedTs = now
	}
	knowledgeMap.UpdatedTs = now
	d.knowledgeMaps[knowledgeMap.ID] = &knowledgeMap

	copied := knowledgeMap
	return &copied, nil
}

func (d *Driver) GetKnowledgeMap(_ context.Context, find *store.FindKnowledgeMap) (*store.KnowledgeMap, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, knowledgeMap := range d.knowledgeMaps {
		if find.ID != nil && knowledgeMap.ID != *find.ID {
			continue
		}
		if find.UserID != nil && knowledgeMap.UserID != *find.UserID {
			continue
		}
		copied := *knowledgeMap
		return &copied, nil
	}
	return nil, nil
}

func (d *Driver) CreateConceptNode(_ context.Context, create *store.ConceptNode) (*store.ConceptNode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.knowledgeMaps[create.MapID]; !ok {
		return nil, errors.Errorf("knowledge map %d not found", create.MapID)
	}

	node := *create
	node.ID = d.allocateID()
	if node.CreatedTs == 0 {
		node.CreatedTs = time.Now().Unix()
	}
	d.conceptNodes = append(d.conceptNodes, &node)
	d.knowledgeMaps[create.MapID].UpdatedTs = time.Now().Unix()

	copied := node
	return &copied, nil
}

func (d *Driver) ListConceptNodes(_ context.Context, mapID int32) ([]*store.ConceptNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var nodes []*store.ConceptNode
	for _, node := range d.conceptNodes {
		if node.MapID != mapID {
			continue
		}
		copied := *node
		nodes = append(nodes, &copied)
	}
	return nodes, nil
}

func (d *Driver) CreateConceptEdge(_ context.Context, create *store.ConceptEdge) (*store.ConceptEdge, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.knowledgeMaps[create.MapID]; !ok {
		return nil, errors.Errorf("knowledge map %d not found", create.MapID)
	}

	edge := *create
	edge.ID = d.allocateID()
	if edge.Strength == 0 {
		edge.Strength = 1.0
	}
	if edge.CreatedTs == 0 {
		edge.CreatedTs = time.Now().Unix()
	}
	d.conceptEdges = append(d.conceptEdges, &edge)
	d.knowledgeMaps[create.MapID].UpdatedTs = time.Now().Unix()

	copied := edge
	return &copied, nil
}

func (d *Driver) ListConceptEdges(_ context.Context, mapID int32) ([]*store.ConceptEdge, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var edges []*store.ConceptEdge
	for _, edge := range d.conceptEdges {
		if edge.MapID != mapID {
			continue
		}
		copied := *edge
		edges = append(edges, &copied)
	}
	return edges, nil
}

var _ store.Driver = (*Driver)(nil)
