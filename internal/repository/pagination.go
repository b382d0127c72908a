package repository

import "gorm.io/gorm"

// paginate 先统计总数，再返回带 Limit/Offset 的查询；pageSize 非正数时不分页
func paginate(query *gorm.DB, page, pageSize int) (*gorm.DB, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pageSize <= 0 {
		return query, total, nil
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize), total, nil
}
