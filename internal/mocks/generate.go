package mocks

//go:generate mockery --name Applier --srcpkg github.com/aevon-lab/revenue-engine/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
//go:generate mockery --name BucketReader --srcpkg github.com/aevon-lab/revenue-engine/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
