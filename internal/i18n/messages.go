package i18n

var catalogs = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":            "请求参数错误",
		"error.internal":               "服务器内部错误",
		"error.unauthorized":           "未登录或登录已失效",
		"error.forbidden":              "无权访问",
		"error.jwt_secret_missing":     "服务端未配置 JWT 密钥",
		"error.auth_header_missing":    "缺少 Authorization 请求头",
		"error.auth_header_invalid":    "Authorization 格式错误",
		"error.token_invalid":          "Token 无效或已吊销",
		"error.user_id_invalid":        "用户 ID 无效",
		"error.user_id_type_invalid":   "用户 ID 类型错误",
		"error.admin_id_invalid":       "管理员 ID 无效",
		"error.admin_id_type_invalid":  "管理员 ID 类型错误",
		"error.rate_limited":           "操作过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable": "限流服务不可用",

		"error.coupon_not_found":      "优惠券不存在",
		"error.coupon_invalid":        "优惠券参数无效",
		"error.coupon_scope_invalid":  "优惠券适用范围无效",
		"error.coupon_status_invalid": "当前状态不允许该操作",
		"error.coupon_not_by_code":    "该优惠券不通过兑换码发放",
		"error.issue_window_invalid":  "发放时间或有效期设置无效",
		"error.coupon_fetch_failed":   "获取优惠券失败",
		"error.coupon_create_failed":  "创建优惠券失败",
		"error.coupon_update_failed":  "更新优惠券失败",
		"error.coupon_delete_failed":  "删除优惠券失败",

		"error.claim_not_started":   "优惠券未开始发放",
		"error.claim_sold_out":      "优惠券已领完",
		"error.claim_ended":         "优惠券发放已结束",
		"error.claim_limit_reached": "已达到领取上限",
		"error.claim_busy":          "领取人数过多，请稍后再试",
		"error.claim_failed":        "领取失败",

		"error.code_invalid":       "兑换码无效",
		"error.code_not_found":     "兑换码不存在",
		"error.code_used":          "兑换码已被使用",
		"error.code_expired":       "兑换码已过期",
		"error.codegen_busy":       "兑换码生成任务繁忙，请稍后再试",
		"error.code_fetch_failed":  "获取兑换码失败",
		"error.code_update_failed": "更新兑换码失败",

		"error.order_items_invalid": "订单明细无效",
		"error.pricing_failed":      "优惠计算失败",

		"error.authz_fetch_failed":  "获取权限信息失败",
		"error.authz_update_failed": "更新权限失败",
	},
	LocaleTW: {
		"error.bad_request":            "請求參數錯誤",
		"error.internal":               "服務器內部錯誤",
		"error.unauthorized":           "未登錄或登錄已失效",
		"error.forbidden":              "無權訪問",
		"error.jwt_secret_missing":     "服務端未配置 JWT 密鑰",
		"error.auth_header_missing":    "缺少 Authorization 請求頭",
		"error.auth_header_invalid":    "Authorization 格式錯誤",
		"error.token_invalid":          "Token 無效或已吊銷",
		"error.user_id_invalid":        "用戶 ID 無效",
		"error.user_id_type_invalid":   "用戶 ID 類型錯誤",
		"error.admin_id_invalid":       "管理員 ID 無效",
		"error.admin_id_type_invalid":  "管理員 ID 類型錯誤",
		"error.rate_limited":           "操作過於頻繁，請 %d 秒後再試",
		"error.rate_limit_unavailable": "限流服務不可用",

		"error.coupon_not_found":      "優惠券不存在",
		"error.coupon_invalid":        "優惠券參數無效",
		"error.coupon_scope_invalid":  "優惠券適用範圍無效",
		"error.coupon_status_invalid": "當前狀態不允許該操作",
		"error.coupon_not_by_code":    "該優惠券不通過兌換碼發放",
		"error.issue_window_invalid":  "發放時間或有效期設置無效",
		"error.coupon_fetch_failed":   "獲取優惠券失敗",
		"error.coupon_create_failed":  "創建優惠券失敗",
		"error.coupon_update_failed":  "更新優惠券失敗",
		"error.coupon_delete_failed":  "刪除優惠券失敗",

		"error.claim_not_started":   "優惠券未開始發放",
		"error.claim_sold_out":      "優惠券已領完",
		"error.claim_ended":         "優惠券發放已結束",
		"error.claim_limit_reached": "已達到領取上限",
		"error.claim_busy":          "領取人數過多，請稍後再試",
		"error.claim_failed":        "領取失敗",

		"error.code_invalid":       "兌換碼無效",
		"error.code_not_found":     "兌換碼不存在",
		"error.code_used":          "兌換碼已被使用",
		"error.code_expired":       "兌換碼已過期",
		"error.codegen_busy":       "兌換碼生成任務繁忙，請稍後再試",
		"error.code_fetch_failed":  "獲取兌換碼失敗",
		"error.code_update_failed": "更新兌換碼失敗",

		"error.order_items_invalid": "訂單明細無效",
		"error.pricing_failed":      "優惠計算失敗",

		"error.authz_fetch_failed":  "獲取權限信息失敗",
		"error.authz_update_failed": "更新權限失敗",
	},
	LocaleEN: {
		"error.bad_request":            "Invalid request parameters",
		"error.internal":               "Internal server error",
		"error.unauthorized":           "Not signed in or session expired",
		"error.forbidden":              "Access denied",
		"error.jwt_secret_missing":     "JWT secret is not configured",
		"error.auth_header_missing":    "Missing Authorization header",
		"error.auth_header_invalid":    "Malformed Authorization header",
		"error.token_invalid":          "Token is invalid or revoked",
		"error.user_id_invalid":        "Invalid user ID",
		"error.user_id_type_invalid":   "Invalid user ID type",
		"error.admin_id_invalid":       "Invalid admin ID",
		"error.admin_id_type_invalid":  "Invalid admin ID type",
		"error.rate_limited":           "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable": "Rate limiter unavailable",

		"error.coupon_not_found":      "Coupon not found",
		"error.coupon_invalid":        "Invalid coupon parameters",
		"error.coupon_scope_invalid":  "Invalid coupon scope",
		"error.coupon_status_invalid": "Operation not allowed in current status",
		"error.coupon_not_by_code":    "Coupon is not issued by exchange code",
		"error.issue_window_invalid":  "Invalid issuance or validity window",
		"error.coupon_fetch_failed":   "Failed to fetch coupons",
		"error.coupon_create_failed":  "Failed to create coupon",
		"error.coupon_update_failed":  "Failed to update coupon",
		"error.coupon_delete_failed":  "Failed to delete coupon",

		"error.claim_not_started":   "Coupon issuance has not started",
		"error.claim_sold_out":      "Coupon is sold out",
		"error.claim_ended":         "Coupon issuance has ended",
		"error.claim_limit_reached": "Claim limit reached",
		"error.claim_busy":          "Too many claimers, please retry later",
		"error.claim_failed":        "Claim failed",

		"error.code_invalid":       "Invalid exchange code",
		"error.code_not_found":     "Exchange code not found",
		"error.code_used":          "Exchange code already used",
		"error.code_expired":       "Exchange code expired",
		"error.codegen_busy":       "Code generation is busy, please retry later",
		"error.code_fetch_failed":  "Failed to fetch exchange codes",
		"error.code_update_failed": "Failed to update exchange codes",

		"error.order_items_invalid": "Invalid order items",
		"error.pricing_failed":      "Failed to calculate discounts",

		"error.authz_fetch_failed":  "Failed to fetch permissions",
		"error.authz_update_failed": "Failed to update permissions",
	},
}
