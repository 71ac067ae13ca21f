package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	_ "golang.org/x/image/webp"
)

type decodedImage struct {
	name  string
	image image.Image
}

// decodeImages decodes every image referenced by a texture on the loader's worker pool and waits for
// all of them. The first failure, in image order, is returned.
func (l *loader) decodeImages(name string, doc *gltf.Document, dir string) (map[uint32]decodedImage, error) {
	used := make(map[uint32]struct{})
	for _, t := range doc.Textures {
		if t.Source != nil && int(*t.Source) < len(doc.Images) {
			used[*t.Source] = struct{}{}
		}
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		out    = make(map[uint32]decodedImage, len(used))
		errAt  = make(map[uint32]error)
		sorted = sortedKeys(used)
	)
	for _, idx := range sorted {
		idx := idx
		gi := doc.Images[idx]
		// The index keeps same-named images apart; texture packing dedupes by name.
		imgName := fmt.Sprintf("%s/%d", name, idx)
		if gi.Name != "" {
			imgName = fmt.Sprintf("%s/%d:%s", name, idx, gi.Name)
		}

		wg.Add(1)
		l.decodePool.SubmitTask(worker.Task{
			ID: l.nextTaskID(),
			Do: func() (any, error) {
				defer wg.Done()
				img, err := decodeImage(doc, gi, dir)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errAt[idx] = errors.Wrapf(err, "image %d", idx)
					return nil, err
				}
				out[idx] = decodedImage{name: imgName, image: img}
				return img, nil
			},
		})
	}
	wg.Wait()

	for _, idx := range sorted {
		if err := errAt[idx]; err != nil {
			return nil, err
		}
	}
	if len(sorted) > 0 {
		l.logger.Debug("decoded textures", "model", name, "count", len(sorted))
	}
	return out, nil
}

func decodeImage(doc *gltf.Document, gi *gltf.Image, dir string) (image.Image, error) {
	data, err := imageBytes(doc, gi, dir)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return img, nil
}

// imageBytes returns the encoded bytes of an image stored in a buffer view, a data URI or a file
// next to the asset.
func imageBytes(doc *gltf.Document, gi *gltf.Image, dir string) ([]byte, error) {
	switch {
	case gi.BufferView != nil:
		if int(*gi.BufferView) >= len(doc.BufferViews) {
			return nil, errors.Errorf("buffer view %d out of range", *gi.BufferView)
		}
		bv := doc.BufferViews[*gi.BufferView]
		if int(bv.Buffer) >= len(doc.Buffers) {
			return nil, errors.Errorf("buffer %d out of range", bv.Buffer)
		}
		data := doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if int(end) > len(data) {
			return nil, errors.Errorf("buffer view %d exceeds buffer", *gi.BufferView)
		}
		return data[bv.ByteOffset:end], nil
	case gi.IsEmbeddedResource():
		return gi.MarshalData()
	case gi.URI != "":
		if dir == "" {
			return nil, errors.Wrapf(ErrUnsupportedAsset, "external image %q in a stream", gi.URI)
		}
		uri, err := url.PathUnescape(gi.URI)
		if err != nil {
			uri = gi.URI
		}
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(uri)))
	default:
		return nil, errors.New("image has no data")
	}
}
