// Package inventory implements the product catalog on top of a Repository
// and the cache-aside layer.
//
// Every read maps to one cached view:
//
//	product:id:<id>              GetByID
//	product:all                  GetAll
//	product:active               GetActive
//	product:category:<category>  GetByCategory
//	product:stock:<id>           GetStock
//	product:stats                GetStats
//
// Every write commits to the repository first and then removes each view
// that could contain the written product, including the previous and the new
// category when a patch moves a product. Stock adjustments also write the
// fresh quantity through to the stock view.
//
// # Consistency
//
// Writes to the same product are serialized only by the repository. When two
// writers race, a reader can load the row between the first commit and the
// second, repopulate a view after the first writer's invalidation and before
// the second commit, and leave that older state cached until the second
// writer's invalidation runs. If the reader's load finishes after that
// invalidation, the older state stays cached until the entry's TTL expires.
// The stock write-through has the same window when two adjustments race.
package inventory
