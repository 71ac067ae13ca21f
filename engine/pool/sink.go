package pool

import "github.com/Carmen-Shannon/oxy-deferred/engine/scene"

// OnModelAdded enqueues one add per pair.
func (p *pool) OnModelAdded(msg scene.ModelAdded) {
	for _, pair := range msg.Pairs {
		p.RequestAdd(pair.MeshName, pair.Mesh, pair.MaterialName, pair.Material)
	}
}

// OnModelRemoved enqueues one remove per pair.
func (p *pool) OnModelRemoved(msg scene.ModelRemoved) {
	for _, pair := range msg.Pairs {
		p.RequestRemove(pair.MeshName, pair.MaterialName)
	}
}
