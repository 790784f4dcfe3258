// Package core contains the shared value types and collaborator contracts of
// the mnemo pipeline: the closed message role union, conversation turns,
// memory and action records with their request-scoped candidate views, the
// relational store / vector index / embedder interfaces and the error
// taxonomy. Everything here is deliberately free of behaviour beyond simple
// conversions so that pipeline packages can depend on it without cycles.
package core
