// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

// Repositories bundles every BadgerDB-backed store sharing one backend.
type Repositories struct {
	Backend     *Backend
	Vectors     *VectorRepository
	Embeddings  *EmbeddingRepository
	Checkpoints *CheckpointRepository
}

// Close closes the shared backend.
func (r *Repositories) Close() error {
	return r.Backend.Close()
}

// OpenRepositories opens (or creates) a database at path and wires the
// repositories to it.
func OpenRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Backend:     backend,
		Vectors:     NewVectorRepository(backend),
		Embeddings:  NewEmbeddingRepository(backend),
		Checkpoints: NewCheckpointRepository(backend),
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}
