// Package cache provides the frame-scoped object cache used by the API
// manager for render passes and render states.
//
// Entries are keyed by their description and stamped with the frame that
// last used them. Advance moves the cache to the next frame and evicts
// entries that were not used for MaxAge frames, oldest first:
//
//	c := cache.New[passKey, *RenderPass](8, func(_ passKey, p *RenderPass) { p.release() })
//	pass, err := c.GetOrCreate(key, func() (*RenderPass, error) { return build(key) })
//	...
//	c.Advance() // once per EndFrame
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
