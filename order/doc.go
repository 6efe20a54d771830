// Package order submits purchase requests and applies admin decisions. All
// stock accounting lives in the store's transactional approval; this layer
// adds input validation, lifecycle notifications and the assistant-side chat
// messages that tell the customer what happened.
package order
