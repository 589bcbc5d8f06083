// Package docquery evaluates the Mongo-style query and update subset used by
// the document store backends.
//
// Queries support the logical operators $and, $or and $nor, the field
// operators $eq, $ne, $in, $nin, $gt, $gte, $lt, $lte, $exists, $regex and
// $not, dotted paths into nested documents and array membership for scalar
// conditions. Numbers compare by value regardless of their Go type. An
// entities.ObjectID only ever equals another ObjectID, never its hex string;
// callers that accept both forms build an $or (see infrastructure/idformat).
//
// Updates support $set, $unset, $inc, $merge, $push and $pull. A document
// without operator keys is applied as $set. The _id field is immutable.
package docquery
