package osm2zoning

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

type EntityKind uint16

const (
	KIND_POINT = EntityKind(iota + 1)
	KIND_WAY
	KIND_RELATION
)

func (iotaIdx EntityKind) String() string {
	return [...]string{"point", "way", "relation"}[iotaIdx-1]
}

// SourceRef is the identity of a raw entity: unique within its kind only
type SourceRef struct {
	Kind EntityKind
	ID   int64
}

func (ref SourceRef) String() string {
	return fmt.Sprintf("%s/%d", ref.Kind, ref.ID)
}

func lessSourceRef(a, b SourceRef) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}

// TransferZone is a waiting area: platform, pole, shelter or station footprint.
// Geometry is immutable once the zone has been registered in a store.
type TransferZone struct {
	ref              SourceRef
	geom             orb.Geometry
	center           orb.Point
	name             string
	platformRefs     []string
	modes            []TransitMode
	needsModeSalvage bool
	groups           []*TransferZoneGroup
}

// Point implements orb.Pointer so zones can live in the quadtree
func (zone *TransferZone) Point() orb.Point {
	return zone.center
}

func (zone *TransferZone) Ref() SourceRef {
	return zone.ref
}

func (zone *TransferZone) Name() string {
	return zone.name
}

func (zone *TransferZone) Modes() []TransitMode {
	return zone.modes
}

func (zone *TransferZone) PlatformRefs() []string {
	return zone.platformRefs
}

func (zone *TransferZone) Geometry() orb.Geometry {
	return zone.geom
}

// hasPointGeometry reports whether the zone is a bare point rather than an area
// or line shape. Point shaped zones placed on infrastructure serve one stop only.
func (zone *TransferZone) hasPointGeometry() bool {
	_, ok := zone.geom.(orb.Point)
	return ok
}

func (zone *TransferZone) hasPlatformRef(code string) bool {
	for _, existing := range zone.platformRefs {
		if existing == code {
			return true
		}
	}
	return false
}

// TransferZoneGroup bundles transfer zones belonging together, e.g. all
// platforms of one station. Zones arrive incrementally and possibly out of
// relation-member order.
type TransferZoneGroup struct {
	ref         SourceRef
	name        string
	stationName string
	zones       []*TransferZone
}

func (group *TransferZoneGroup) Ref() SourceRef {
	return group.ref
}

func (group *TransferZoneGroup) Name() string {
	return group.name
}

func (group *TransferZoneGroup) StationName() string {
	return group.stationName
}

func (group *TransferZoneGroup) Zones() []*TransferZone {
	return group.zones
}

// AddZone attaches zone to group, once
func (group *TransferZoneGroup) AddZone(zone *TransferZone) {
	for _, existing := range group.zones {
		if existing == zone {
			return
		}
	}
	group.zones = append(group.zones, zone)
	zone.groups = append(zone.groups, group)
}

func (group *TransferZoneGroup) removeZone(zone *TransferZone) {
	filtered := group.zones[:0]
	for _, existing := range group.zones {
		if existing != zone {
			filtered = append(filtered, existing)
		}
	}
	group.zones = filtered
}

/* Zone store */

// ZoneStore owns every extracted transfer zone behind two indexes kept in
// sync as a pair: identity lookup and quadtree for spatial queries.
type ZoneStore struct {
	zones map[SourceRef]*TransferZone
	tree  *quadtree.Quadtree

	// Identifiers classified as valid but unsupported: relation membership
	// checks must not warn about these being absent
	unsupported map[SourceRef]struct{}
	// Identifiers already reported as discarded, to suppress repeat warnings
	discarded map[SourceRef]struct{}
}

func NewZoneStore() *ZoneStore {
	return &ZoneStore{
		zones:       make(map[SourceRef]*TransferZone),
		tree:        quadtree.New(orb.Bound{Min: orb.Point{-180.0, -90.0}, Max: orb.Point{180.0, 90.0}}),
		unsupported: make(map[SourceRef]struct{}),
		discarded:   make(map[SourceRef]struct{}),
	}
}

// Add registers zone in both indexes. Zone geometry must not change afterwards.
func (store *ZoneStore) Add(zone *TransferZone) error {
	if _, ok := store.zones[zone.ref]; ok {
		return fmt.Errorf("Transfer zone for %s already registered", zone.ref)
	}
	if err := store.tree.Add(zone); err != nil {
		return err
	}
	store.zones[zone.ref] = zone
	return nil
}

// Remove drops zone from both indexes and detaches it from its groups
func (store *ZoneStore) Remove(zone *TransferZone) {
	if _, ok := store.zones[zone.ref]; !ok {
		return
	}
	store.tree.Remove(zone, func(p orb.Pointer) bool {
		candidate, ok := p.(*TransferZone)
		return ok && candidate.ref == zone.ref
	})
	delete(store.zones, zone.ref)
	for _, group := range zone.groups {
		group.removeZone(zone)
	}
}

// ByRef returns the zone extracted from given raw entity
func (store *ZoneStore) ByRef(ref SourceRef) (*TransferZone, bool) {
	zone, ok := store.zones[ref]
	return zone, ok
}

// Near returns zones whose center lies within given radius around given
// point, ordered by (kind, id) for deterministic processing
func (store *ZoneStore) Near(pt orb.Point, radiusMeters float64) []*TransferZone {
	pointers := store.tree.InBound([]orb.Pointer{}, paddedBound(pt, radiusMeters))
	found := []*TransferZone{}
	for _, pointer := range pointers {
		zone, ok := pointer.(*TransferZone)
		if !ok {
			continue
		}
		if distanceMeters(zone.center, pt) <= radiusMeters {
			found = append(found, zone)
		}
	}
	sort.Slice(found, func(i, j int) bool { return lessSourceRef(found[i].ref, found[j].ref) })
	return found
}

// All returns every registered zone ordered by (kind, id)
func (store *ZoneStore) All() []*TransferZone {
	zones := make([]*TransferZone, 0, len(store.zones))
	for _, zone := range store.zones {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool { return lessSourceRef(zones[i].ref, zones[j].ref) })
	return zones
}

func (store *ZoneStore) Len() int {
	return len(store.zones)
}

// MarkUnsupported records an entity which is correctly tagged but maps to no
// supported mode, so that later reference checks stay silent about it
func (store *ZoneStore) MarkUnsupported(ref SourceRef) {
	store.unsupported[ref] = struct{}{}
}

func (store *ZoneStore) IsUnsupported(ref SourceRef) bool {
	_, ok := store.unsupported[ref]
	return ok
}

// MarkDiscarded records a reported discard; returns false when it was
// reported before so the caller can suppress the repeat warning
func (store *ZoneStore) MarkDiscarded(ref SourceRef) bool {
	if _, ok := store.discarded[ref]; ok {
		return false
	}
	store.discarded[ref] = struct{}{}
	return true
}

/* Group store */

type GroupStore struct {
	groups map[SourceRef]*TransferZoneGroup
}

func NewGroupStore() *GroupStore {
	return &GroupStore{groups: make(map[SourceRef]*TransferZoneGroup)}
}

func (store *GroupStore) Add(group *TransferZoneGroup) {
	store.groups[group.ref] = group
}

func (store *GroupStore) ByRef(ref SourceRef) (*TransferZoneGroup, bool) {
	group, ok := store.groups[ref]
	return group, ok
}

func (store *GroupStore) Remove(group *TransferZoneGroup) {
	delete(store.groups, group.ref)
}

func (store *GroupStore) All() []*TransferZoneGroup {
	groups := make([]*TransferZoneGroup, 0, len(store.groups))
	for _, group := range store.groups {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return lessSourceRef(groups[i].ref, groups[j].ref) })
	return groups
}

func (store *GroupStore) Len() int {
	return len(store.groups)
}

/* Connectoids stuff */

type ConnectoidID int

// Connectoid is a directed binding of one access link segment to one transfer
// zone with an allowed mode subset. Dedupe key is the (segment, zone) pair.
type Connectoid struct {
	ID           ConnectoidID
	segmentID    LinkSegmentID
	accessNodeID NetworkNodeID
	zone         *TransferZone
	modes        []TransitMode
}

func (connectoid *Connectoid) SegmentID() LinkSegmentID {
	return connectoid.segmentID
}

func (connectoid *Connectoid) AccessNodeID() NetworkNodeID {
	return connectoid.accessNodeID
}

func (connectoid *Connectoid) Zone() *TransferZone {
	return connectoid.zone
}

func (connectoid *Connectoid) Modes() []TransitMode {
	return connectoid.modes
}

type segmentZoneKey struct {
	segment LinkSegmentID
	zone    SourceRef
}

// ConnectoidStore owns connectoids behind three indexes kept in sync: dedupe
// by (segment, zone), lookup by access node location and lookup by owning zone.
type ConnectoidStore struct {
	all           map[ConnectoidID]*Connectoid
	bySegmentZone map[segmentZoneKey]*Connectoid
	byLocation    map[orb.Point][]*Connectoid
	byZone        map[SourceRef][]*Connectoid

	lastID ConnectoidID
}

func NewConnectoidStore() *ConnectoidStore {
	return &ConnectoidStore{
		all:           make(map[ConnectoidID]*Connectoid),
		bySegmentZone: make(map[segmentZoneKey]*Connectoid),
		byLocation:    make(map[orb.Point][]*Connectoid),
		byZone:        make(map[SourceRef][]*Connectoid),
	}
}

// AddOrExtend creates a connectoid for the (segment, zone) pair or extends
// the mode set of the existing one. Reports whether a new connectoid was created.
func (store *ConnectoidStore) AddOrExtend(zone *TransferZone, segment *LinkSegment, accessNode *NetworkNode, modes []TransitMode) (*Connectoid, bool) {
	key := segmentZoneKey{segment: segment.ID, zone: zone.ref}
	if existing, ok := store.bySegmentZone[key]; ok {
		existing.modes = mergeModes(existing.modes, modes)
		return existing, false
	}
	store.lastID++
	connectoid := &Connectoid{
		ID:           store.lastID,
		segmentID:    segment.ID,
		accessNodeID: accessNode.ID,
		zone:         zone,
		modes:        make([]TransitMode, len(modes)),
	}
	copy(connectoid.modes, modes)
	store.all[connectoid.ID] = connectoid
	store.bySegmentZone[key] = connectoid
	store.byLocation[accessNode.geom] = append(store.byLocation[accessNode.geom], connectoid)
	store.byZone[zone.ref] = append(store.byZone[zone.ref], connectoid)
	return connectoid, true
}

// Rewire applies post-split segment replacements: every connectoid anchored on
// a removed segment swaps to the replacement matched by original downstream
// node identity, keeping access node and geometry position untouched
func (store *ConnectoidStore) Rewire(rewires []SegmentRewire) {
	for _, rewire := range rewires {
		for _, connectoid := range store.all {
			if connectoid.segmentID != rewire.OldSegment {
				continue
			}
			key := segmentZoneKey{segment: connectoid.segmentID, zone: connectoid.zone.ref}
			delete(store.bySegmentZone, key)
			connectoid.segmentID = rewire.NewSegment
			store.bySegmentZone[segmentZoneKey{segment: rewire.NewSegment, zone: connectoid.zone.ref}] = connectoid
		}
	}
}

// ZoneHasConnectoids is the "complete zone" predicate
func (store *ConnectoidStore) ZoneHasConnectoids(ref SourceRef) bool {
	return len(store.byZone[ref]) > 0
}

// ByZone returns connectoids serving given zone
func (store *ConnectoidStore) ByZone(ref SourceRef) []*Connectoid {
	return store.byZone[ref]
}

// AtLocation returns connectoids whose access node sits at given point
func (store *ConnectoidStore) AtLocation(pt orb.Point) []*Connectoid {
	return store.byLocation[pt]
}

// RemoveForZone drops every connectoid of given zone from all indexes
func (store *ConnectoidStore) RemoveForZone(ref SourceRef, net *Network) {
	for _, connectoid := range store.byZone[ref] {
		delete(store.all, connectoid.ID)
		delete(store.bySegmentZone, segmentZoneKey{segment: connectoid.segmentID, zone: ref})
		if node, ok := net.Node(connectoid.accessNodeID); ok {
			atLocation := store.byLocation[node.geom][:0]
			for _, candidate := range store.byLocation[node.geom] {
				if candidate != connectoid {
					atLocation = append(atLocation, candidate)
				}
			}
			if len(atLocation) == 0 {
				delete(store.byLocation, node.geom)
			} else {
				store.byLocation[node.geom] = atLocation
			}
		}
	}
	delete(store.byZone, ref)
}

// All returns every connectoid ordered by identifier
func (store *ConnectoidStore) All() []*Connectoid {
	connectoids := make([]*Connectoid, 0, len(store.all))
	for _, connectoid := range store.all {
		connectoids = append(connectoids, connectoid)
	}
	sort.Slice(connectoids, func(i, j int) bool { return connectoids[i].ID < connectoids[j].ID })
	return connectoids
}

func (store *ConnectoidStore) Len() int {
	return len(store.all)
}
