package replay

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/oklog/ulid/v2"
	"github.com/okian/inkflow/internal/domain/model"
)

// Generator produces synthetic pen and finger sessions. It is not safe for
// concurrent use.
type Generator struct {
	rng     *rand.Rand
	nextKey int64
}

// NewGenerator creates a generator. Equal seeds give equal sessions apart
// from batch ids.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate builds cfg.Sessions strokes on each of cfg.Surfaces surfaces.
func (g *Generator) Generate(cfg *Config) map[string][]Session {
	out := make(map[string][]Session, cfg.Surfaces)
	for s := 0; s < cfg.Surfaces; s++ {
		surface := fmt.Sprintf("surface-%03d", s)
		sessions := make([]Session, 0, cfg.Sessions)
		for i := 0; i < cfg.Sessions; i++ {
			sessions = append(sessions, g.Session(surface, fmt.Sprintf("contact-%d", i), cfg.Moves))
		}
		out[surface] = sessions
	}
	return out
}

// Session draws one stroke: began, moves carrying coalesced and predicted
// samples, then ended. Stylus samples ask for a pressure estimate; half of
// the estimates arrive before the end and half after it.
func (g *Generator) Session(surfaceID, contactID string, moves int) Session {
	stylus := g.rng.IntN(2) == 0
	x, y := g.rng.Float64()*500, g.rng.Float64()*500
	heading := g.rng.Float64() * 2 * math.Pi

	var pending []int64
	sample := func() model.RawSample {
		heading += (g.rng.Float64() - 0.5) * 0.6
		x += 4 * math.Cos(heading)
		y += 4 * math.Sin(heading)
		s := model.RawSample{X: x, Y: y, Altitude: math.Pi / 3, Azimuth: heading}
		if stylus {
			s.Type = model.ContactPencil
			s.MaxForce = 4
			s.Force = 0.5 + g.rng.Float64()*2
			if g.rng.IntN(3) == 0 {
				g.nextKey++
				s.UpdateKey = model.KeyOf(g.nextKey)
				s.PendingProperties = []string{"force"}
				pending = append(pending, g.nextKey)
			}
		} else {
			s.Type = model.ContactDirect
			s.MajorRadius = 20 + g.rng.Float64()*60
		}
		return s
	}

	sess := Session{SurfaceID: surfaceID, ContactID: contactID, Stylus: stylus}
	add := func(kind model.EventKind, c model.Contact) {
		sess.Batches = append(sess.Batches, &model.Batch{
			BatchID:   ulid.Make().String(),
			SurfaceID: surfaceID,
			Kind:      kind,
			Contacts:  []model.Contact{c},
		})
	}

	first := sample()
	add(model.KindBegan, model.Contact{ID: contactID, Sample: first})
	sess.Samples = 1

	for m := 0; m < moves; m++ {
		coalesced := make([]model.RawSample, 1+g.rng.IntN(3))
		for i := range coalesced {
			coalesced[i] = sample()
		}
		sess.Samples += len(coalesced)
		predicted := []model.RawSample{g.predict(coalesced[len(coalesced)-1])}
		add(model.KindMoved, model.Contact{
			ID:        contactID,
			Sample:    coalesced[len(coalesced)-1],
			Coalesced: coalesced,
			Predicted: predicted,
		})
	}

	resolve := func(key int64) {
		s := model.RawSample{Type: model.ContactPencil, MaxForce: 4, Force: 1 + g.rng.Float64()*2}
		s.UpdateKey = model.KeyOf(key)
		add(model.KindEstimated, model.Contact{ID: contactID, Sample: s})
	}
	early := pending[:len(pending)/2]
	late := pending[len(pending)/2:]
	for _, k := range early {
		resolve(k)
	}

	end := sample()
	end.UpdateKey, end.PendingProperties = nil, nil
	add(model.KindEnded, model.Contact{ID: contactID, Sample: end, Coalesced: []model.RawSample{}})

	for _, k := range late {
		resolve(k)
	}
	return sess
}

// predict extrapolates one step past the last confirmed sample.
func (g *Generator) predict(last model.RawSample) model.RawSample {
	p := last
	p.UpdateKey, p.PendingProperties = nil, nil
	p.X += 4 * math.Cos(last.Azimuth)
	p.Y += 4 * math.Sin(last.Azimuth)
	return p
}
