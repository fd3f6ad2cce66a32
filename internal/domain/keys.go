package domain

// KeyPrefix namespaces every key this service reads or writes in the shared store.
const KeyPrefix = "scholargraph:"

// IndexName returns the search index name of a collection.
func IndexName(collectionID string) string {
	return KeyPrefix + collectionID + ":idx"
}

// DocumentKeyPrefix returns the key prefix of the documents of a collection.
func DocumentKeyPrefix(collectionID string) string {
	return KeyPrefix + collectionID + ":"
}
