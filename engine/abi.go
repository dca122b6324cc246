package engine

const (
	CabiRealloc = "cabi_realloc"

	// CabiPostPrefix names the optional post-return export: cabi_post_<function>.
	CabiPostPrefix = "cabi_post_"

	// ReleaseHandle is the optional export that releases a persistent handle.
	ReleaseHandle = "release_handle"

	// InitializeFunc is run at instantiation when a reactor module exports it.
	InitializeFunc = "_initialize"

	// Legacy names from pre-standardization component model implementations
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
)

// allocatorNames lists allocator exports in lookup order.
var allocatorNames = []string{CabiRealloc, legacyRealloc, legacyAlloc, simpleAlloc}
