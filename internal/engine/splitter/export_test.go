package splitter

// LoadOrder exposes loadOrder for testing.
var LoadOrder = loadOrder
