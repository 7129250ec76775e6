package vectorstore

import "trueneutral/internal/domain"

// Storage holds document vectors keyed by corpus tag and supports similarity search.
type Storage = domain.VectorStore
