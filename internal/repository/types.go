package repository

// ProjectListFilter 查询项目列表的过滤条件
type ProjectListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// LocationListFilter 查询地点列表的过滤条件
type LocationListFilter struct {
	Page        int
	PageSize    int
	ProjectID   uint
	Search      string
	WithProject bool
}

// DropListFilter 查询 Drop 列表的过滤条件
type DropListFilter struct {
	Page         int
	PageSize     int
	LocationID   uint
	Status       string
	WithLocation bool
}

// MintListFilter 查询铸造流水列表的过滤条件
type MintListFilter struct {
	Page     int
	PageSize int
	DropID   uint
	Chain    string
	Status   string
	WithDrop bool
}
