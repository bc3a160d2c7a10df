package moments

import "github.com/coder/hnsw"

// subCluster partitions a ranked cluster's members into near-duplicate
// groups using an HNSW index over member fingerprints and a similarity
// threshold stricter than the clustering one. Runs as a sequential
// post-pass, gated by Options.SubClusters; it is never invoked from the
// clustering path itself.
func subCluster(c *Cluster, threshold float64) []SubCluster {
	indexed := make([]*Photo, 0, len(c.Members))
	for _, m := range c.Members {
		if len(m.Fingerprint) > 0 {
			indexed = append(indexed, m)
		}
	}
	if len(indexed) < 2 {
		return nil
	}

	g := hnsw.NewGraph[int]()
	g.M = 16
	g.Ml = 1.0 / 16.0
	g.Distance = hnsw.CosineDistance
	for i, m := range indexed {
		g.Add(hnsw.MakeNode(i, m.Fingerprint))
	}

	assigned := make([]bool, len(indexed))
	var groups []SubCluster

	// Seed groups in ranked order so each group forms around its best
	// photo, not an arbitrary one.
	for _, score := range c.RankedMembers {
		seedIdx := indexOf(indexed, score.Photo)
		if seedIdx < 0 || assigned[seedIdx] {
			continue
		}

		group := SubCluster{Kind: "near-duplicate"}
		group.photos = append(group.photos, indexed[seedIdx])
		group.PhotoIDs = append(group.PhotoIDs, indexed[seedIdx].ID)
		assigned[seedIdx] = true

		neighbors := g.Search(indexed[seedIdx].Fingerprint, len(indexed))
		for _, n := range neighbors {
			if assigned[n.Key] {
				continue
			}
			if Similarity(indexed[seedIdx].Fingerprint, indexed[n.Key].Fingerprint) >= threshold {
				group.photos = append(group.photos, indexed[n.Key])
				group.PhotoIDs = append(group.PhotoIDs, indexed[n.Key].ID)
				assigned[n.Key] = true
			}
		}

		// Singleton groups carry no information.
		if len(group.photos) > 1 {
			groups = append(groups, group)
		}
	}

	return groups
}

func indexOf(photos []*Photo, p *Photo) int {
	for i, m := range photos {
		if m == p {
			return i
		}
	}
	return -1
}
