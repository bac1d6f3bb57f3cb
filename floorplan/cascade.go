package floorplan

// CascadeResult counts what a cascading delete removed
type CascadeResult struct {
	Buildings int `json:"buildings"`
	Floors    int `json:"floors"`
	Rooms     int `json:"rooms"`
	Corridors int `json:"corridors"`
}

// DeleteFloorCascade returns doc without the floor and its rooms and
// corridors. Devices are left as they are; the store does not own them.
func DeleteFloorCascade(doc Document, floorID string) (Document, CascadeResult, error) {
	if _, ok := doc.FindFloor(floorID); !ok {
		return doc, CascadeResult{}, ErrFloorNotFound
	}
	return removeFloors(doc, map[string]bool{floorID: true})
}

// DeleteBuildingCascade returns doc without the building and everything
// beneath it.
func DeleteBuildingCascade(doc Document, buildingID string) (Document, CascadeResult, error) {
	found := false
	out := doc.Clone()
	out.Buildings = out.Buildings[:0]
	for _, b := range doc.Buildings {
		if b.ID == buildingID {
			found = true
			continue
		}
		out.Buildings = append(out.Buildings, b)
	}
	if !found {
		return doc, CascadeResult{}, ErrBuildingNotFound
	}

	floors := make(map[string]bool)
	for _, f := range doc.Floors {
		if f.BuildingID == buildingID {
			floors[f.ID] = true
		}
	}

	next, res, err := removeFloors(out, floors)
	res.Buildings = 1
	return next, res, err
}

func removeFloors(doc Document, floors map[string]bool) (Document, CascadeResult, error) {
	var res CascadeResult
	out := doc.Clone()

	out.Floors = out.Floors[:0]
	for _, f := range doc.Floors {
		if floors[f.ID] {
			res.Floors++
			continue
		}
		out.Floors = append(out.Floors, f)
	}

	out.Rooms = out.Rooms[:0]
	for _, r := range doc.Rooms {
		if floors[r.FloorID] {
			res.Rooms++
			continue
		}
		out.Rooms = append(out.Rooms, r)
	}

	out.Corridors = out.Corridors[:0]
	for _, c := range doc.Corridors {
		if floors[c.FloorID] {
			res.Corridors++
			continue
		}
		out.Corridors = append(out.Corridors, c.Clone())
	}

	return out, res, nil
}
