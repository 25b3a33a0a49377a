package domain

var Tables = []interface{}{
	// Catalog
	&Category{},
	&Product{},
	&ProductCategory{},
	&Banner{},
	// Shopper
	&CartLine{},
	&WishlistEntry{},
	&Order{},
	&OrderItem{},
	&Profile{},
	&SavedAddress{},
	// System
	&UserRole{},
	&AdminLog{},
}
