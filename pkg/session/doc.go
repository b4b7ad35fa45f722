/*
Package session implements profile management and persistence orchestration.

A Manager serializes access to profiles of a ports.ProfileStore. Local access is
guarded by reference-counted mutexes; an optional ports.DistributedLocker extends
the guarantee to other processes sharing the same store.
*/
package session
